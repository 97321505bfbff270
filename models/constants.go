package models

// Document store collections
const (
	UsersCollection         = "users"
	MatchPairsCollection    = "matchPairs"
	WeeklyMatchesCollection = "weeklyMatches"
)

// Profile consent fields, queried server side before the gate runs
const (
	FieldHasMatchingConsent = "hasMatchingConsent"
	FieldMatchingEnabled    = "matchingEnabled"
	FieldIsPublic           = "isPublic"
)
