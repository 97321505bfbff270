package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog"

	"github.com/Kubolab-io/takkapp-v1-sub000/config"
	"github.com/Kubolab-io/takkapp-v1-sub000/models"
)

// PhotoResolver turns a stored photo reference into a URL a client can load.
type PhotoResolver interface {
	ResolveURL(ctx context.Context, ref string) string
}

// ObjectPresigner is the part of *s3.PresignClient the photo service uses.
type ObjectPresigner interface {
	PresignGetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
}

// PhotoService presigns read URLs for profile photos kept in S3. Snapshots
// store the object key; the URL is produced only when rendering, so stored
// snapshots do not change every time a signature does.
type PhotoService struct {
	Presigner ObjectPresigner
	Bucket    string
	TTL       time.Duration
	log       zerolog.Logger
}

// NewPhotoResolver builds an S3 backed resolver, or one that returns
// references unchanged when no bucket is configured.
func NewPhotoResolver(ctx context.Context, conf *config.Config, logger zerolog.Logger) (PhotoResolver, error) {
	if conf.Photos.Bucket == "" {
		return passthroughPhotos{}, nil
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(conf.Photos.Region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config for photos: %w", err)
	}
	return NewPhotoService(s3.NewPresignClient(s3.NewFromConfig(cfg)), conf.Photos.Bucket, conf.Photos.PresignTTL, logger), nil
}

func NewPhotoService(presigner ObjectPresigner, bucket string, ttl time.Duration, logger zerolog.Logger) *PhotoService {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &PhotoService{
		Presigner: presigner,
		Bucket:    bucket,
		TTL:       ttl,
		log:       logger.With().Str("component", "photos").Logger(),
	}
}

// ResolveURL returns absolute URLs unchanged and presigns anything else as an
// object key. On failure the reference is returned as is.
func (ps *PhotoService) ResolveURL(ctx context.Context, ref string) string {
	if ref == "" || isAbsoluteURL(ref) {
		return ref
	}
	req, err := ps.Presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(ps.Bucket),
		Key:    aws.String(ref),
	}, s3.WithPresignExpires(ps.TTL))
	if err != nil {
		ps.log.Warn().Err(err).Str("key", ref).Msg("⚠️ Failed to presign photo")
		return ref
	}
	return req.URL
}

func isAbsoluteURL(ref string) bool {
	return strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://")
}

type passthroughPhotos struct{}

func (passthroughPhotos) ResolveURL(_ context.Context, ref string) string { return ref }

// ResolveEntryPhotos returns a copy of entries with counterpart photo URLs resolved.
func ResolveEntryPhotos(ctx context.Context, resolver PhotoResolver, entries []models.MatchEntry) []models.MatchEntry {
	out := make([]models.MatchEntry, len(entries))
	copy(out, entries)
	if resolver == nil {
		return out
	}
	for i := range out {
		out[i].CounterpartSnapshot.PhotoURL = resolver.ResolveURL(ctx, out[i].CounterpartSnapshot.PhotoURL)
	}
	return out
}
