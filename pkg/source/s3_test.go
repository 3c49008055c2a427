package source

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// fakeBucket serves canned ListObjectsV2 pages.
type fakeBucket struct {
	mu    sync.Mutex
	pages [][]types.Object
	err   error
}

func (f *fakeBucket) setPages(pages [][]types.Object) {
	f.mu.Lock()
	f.pages = pages
	f.err = nil
	f.mu.Unlock()
}

func (f *fakeBucket) ListObjectsV2(ctx context.Context, in *s3.ListObjectsV2Input, _ ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}

	page := 0
	if in.ContinuationToken != nil {
		n, err := strconv.Atoi(*in.ContinuationToken)
		if err != nil {
			return nil, err
		}
		page = n
	}
	if page >= len(f.pages) {
		return &s3.ListObjectsV2Output{IsTruncated: aws.Bool(false)}, nil
	}

	out := &s3.ListObjectsV2Output{
		Contents:    f.pages[page],
		IsTruncated: aws.Bool(page < len(f.pages)-1),
	}
	if page < len(f.pages)-1 {
		out.NextContinuationToken = aws.String(strconv.Itoa(page + 1))
	}
	return out, nil
}

func obj(key string, size int64, modified time.Time) types.Object {
	return types.Object{
		Key:          aws.String(key),
		Size:         aws.Int64(size),
		LastModified: aws.Time(modified),
	}
}

func TestBucketPollListPaginates(t *testing.T) {
	t0 := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	fake := &fakeBucket{pages: [][]types.Object{
		{obj("a.bin", 100, t0), obj("b.bin", 200, t0.Add(time.Hour))},
		{obj("c.bin", 50, t0.Add(2*time.Hour))},
	}}

	b := &BucketPoll{Client: fake, Bucket: "assets"}
	listing, err := b.list(context.Background())
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}

	if listing.Count != 3 {
		t.Errorf("expected 3 objects across pages, got %d", listing.Count)
	}
	if listing.TotalSize != 350 {
		t.Errorf("expected total size 350, got %d", listing.TotalSize)
	}
	if listing.LatestKey != "c.bin" {
		t.Errorf("expected latest key c.bin, got %q", listing.LatestKey)
	}
	if !listing.LatestModified.Equal(t0.Add(2 * time.Hour)) {
		t.Errorf("expected latest modified %v, got %v", t0.Add(2*time.Hour), listing.LatestModified)
	}
}

func TestBucketPollEmitsOnChange(t *testing.T) {
	t0 := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	fake := &fakeBucket{pages: [][]types.Object{
		{obj("a.bin", 100, t0)},
	}}

	b := &BucketPoll{
		Client: fake,
		Bucket: "assets",
		Every:  5 * time.Millisecond,
	}

	var mu sync.Mutex
	var got []Listing
	cancel, err := b.Subscribe(func(l Listing) {
		mu.Lock()
		got = append(got, l)
		mu.Unlock()
	})
	if err != nil {
		t.Fatalf("subscribe failed: %v", err)
	}
	defer cancel()

	waitFor := func(n int, what string) {
		t.Helper()
		deadline := time.Now().Add(2 * time.Second)
		for {
			mu.Lock()
			have := len(got)
			mu.Unlock()
			if have >= n {
				return
			}
			if time.Now().After(deadline) {
				t.Fatalf("timed out waiting for %s (have %d emissions)", what, have)
			}
			time.Sleep(time.Millisecond)
		}
	}

	waitFor(1, "initial listing")

	// Several polls of identical content must not re-emit.
	time.Sleep(30 * time.Millisecond)
	mu.Lock()
	if len(got) != 1 {
		mu.Unlock()
		t.Fatalf("unchanged listing should not re-emit, got %d emissions", len(got))
	}
	first := got[0]
	mu.Unlock()
	if first.Count != 1 || first.TotalSize != 100 {
		t.Errorf("unexpected first listing %+v", first)
	}

	fake.setPages([][]types.Object{
		{obj("a.bin", 100, t0), obj("b.bin", 300, t0.Add(time.Minute))},
	})
	waitFor(2, "changed listing")

	mu.Lock()
	second := got[1]
	mu.Unlock()
	if second.Count != 2 || second.TotalSize != 400 || second.LatestKey != "b.bin" {
		t.Errorf("unexpected second listing %+v", second)
	}
}

func TestBucketPollSurvivesListFailure(t *testing.T) {
	fake := &fakeBucket{err: errors.New("throttled")}
	b := &BucketPoll{
		Client: fake,
		Bucket: "assets",
		Every:  5 * time.Millisecond,
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}

	got := make(chan Listing, 4)
	cancel, err := b.Subscribe(func(l Listing) {
		select {
		case got <- l:
		default:
		}
	})
	if err != nil {
		t.Fatalf("subscribe failed: %v", err)
	}
	defer cancel()

	// Let a few failing polls happen, then recover.
	time.Sleep(20 * time.Millisecond)
	t0 := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	fake.setPages([][]types.Object{{obj("a.bin", 10, t0)}})

	select {
	case l := <-got:
		if l.Count != 1 {
			t.Errorf("expected recovered listing with 1 object, got %+v", l)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("poll should recover after listing failures")
	}
}

func TestBucketPollValidation(t *testing.T) {
	b := &BucketPoll{Bucket: "assets"}
	if _, err := b.Subscribe(func(Listing) {}); err == nil {
		t.Error("expected error when Client is nil")
	}

	b = &BucketPoll{Client: &fakeBucket{}}
	if _, err := b.Subscribe(func(Listing) {}); err == nil {
		t.Error("expected error when Bucket is empty")
	}
}
