package source

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// Listing summarizes the objects under one bucket prefix.
type Listing struct {
	// Count is the number of objects.
	Count int

	// TotalSize is the sum of object sizes in bytes.
	TotalSize int64

	// LatestKey is the key of the most recently modified object.
	LatestKey string

	// LatestModified is that object's modification time.
	LatestModified time.Time
}

// BucketPoll watches an S3 prefix and emits a Listing whenever its contents
// change. Unchanged listings are not re-emitted.
//
// The client is injected so the caller controls credentials, region, and
// retry behavior; anything satisfying the ListObjectsV2 API works, including
// a stub in tests.
type BucketPoll struct {
	// Client performs the ListObjectsV2 calls. Required.
	Client s3.ListObjectsV2APIClient

	// Bucket is the bucket name. Required.
	Bucket string

	// Prefix limits the listing; empty means the whole bucket.
	Prefix string

	// Every is the polling interval. Defaults to 30s.
	Every time.Duration

	// Logger receives listing failures. Defaults to slog.Default().
	Logger *slog.Logger
}

// Subscribe lists immediately, then on every tick until cancelled.
func (b *BucketPoll) Subscribe(fn func(Listing)) (func(), error) {
	if b.Client == nil {
		return nil, errors.New("source: bucket poll requires an S3 client")
	}
	if b.Bucket == "" {
		return nil, errors.New("source: bucket poll requires a bucket")
	}
	every := b.Every
	if every <= 0 {
		every = 30 * time.Second
	}
	logger := b.Logger
	if logger == nil {
		logger = slog.Default()
	}

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		var last Listing
		var have bool

		poll := func() {
			listing, err := b.list(ctx)
			if err != nil {
				if ctx.Err() == nil {
					logger.Warn("bucket listing failed",
						"bucket", b.Bucket,
						"prefix", b.Prefix,
						"error", err)
				}
				return
			}
			if ctx.Err() != nil {
				return
			}
			if have && listing == last {
				return
			}
			last = listing
			have = true
			fn(listing)
		}

		poll()
		ticker := time.NewTicker(every)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				poll()
			case <-ctx.Done():
				return
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(cancel)
	}, nil
}

func (b *BucketPoll) list(ctx context.Context) (Listing, error) {
	input := &s3.ListObjectsV2Input{
		Bucket: aws.String(b.Bucket),
	}
	if b.Prefix != "" {
		input.Prefix = aws.String(b.Prefix)
	}

	var listing Listing
	paginator := s3.NewListObjectsV2Paginator(b.Client, input)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return Listing{}, err
		}
		summarize(&listing, page.Contents)
	}
	return listing, nil
}

func summarize(l *Listing, objects []types.Object) {
	for _, obj := range objects {
		l.Count++
		l.TotalSize += aws.ToInt64(obj.Size)
		if mod := aws.ToTime(obj.LastModified); mod.After(l.LatestModified) {
			l.LatestModified = mod
			l.LatestKey = aws.ToString(obj.Key)
		}
	}
}
