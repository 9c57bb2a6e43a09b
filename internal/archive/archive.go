// Package archive keeps final scorecards in blob storage. Drivers live in the
// fs, memory and s3 subpackages; callers depend on blob.Store.
package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path"
	"strconv"
	"strings"
	"time"

	"cricketcore/internal/archive/blob"
	"cricketcore/internal/archive/fs"
	"cricketcore/internal/archive/memory"
	"cricketcore/internal/archive/s3"
	"cricketcore/internal/core"
)

// DriverNone disables archiving.
const DriverNone blob.Driver = "none"

// Config selects and configures the archive backend.
type Config struct {
	Driver blob.Driver
	FSRoot string
	S3     s3.Config
}

// Open builds the configured blob store. DriverNone returns a nil store and
// no error; an empty driver defaults to the filesystem.
func Open(ctx context.Context, cfg Config) (blob.Store, error) {
	driver := cfg.Driver
	if driver == "" {
		driver = blob.DriverFilesystem
	}
	switch driver {
	case DriverNone:
		return nil, nil
	case blob.DriverFilesystem:
		store, err := fs.New(cfg.FSRoot)
		if err != nil {
			return nil, err
		}
		return store, nil
	case blob.DriverMemory:
		return memory.New(), nil
	case blob.DriverS3:
		store, err := s3.New(ctx, cfg.S3)
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown archive driver %s", driver)
	}
}

// ErrNoScorecard is returned by Latest when nothing has been archived for a match.
var ErrNoScorecard = errors.New("no archived scorecard")

const keyPrefix = "scorecards"

// Archiver writes scorecards as JSON documents keyed by match and time.
type Archiver struct {
	store blob.Store
	now   func() time.Time
}

// NewArchiver wraps store. It satisfies core.ScorecardArchiver.
func NewArchiver(store blob.Store) *Archiver {
	return &Archiver{store: store, now: func() time.Time { return time.Now().UTC() }}
}

var _ core.ScorecardArchiver = (*Archiver)(nil)

// Key returns the object key for a card of matchID archived at t.
func Key(matchID string, t time.Time) string {
	// zero-padded so lexical order is chronological
	return path.Join(keyPrefix, matchID, fmt.Sprintf("%020d.json", t.UnixNano()))
}

// ArchiveScorecard stores card under a new key; earlier versions are kept.
func (a *Archiver) ArchiveScorecard(ctx context.Context, card core.Scorecard) error {
	if strings.TrimSpace(card.MatchID) == "" {
		return fmt.Errorf("scorecard without match id")
	}
	body, err := json.Marshal(card)
	if err != nil {
		return fmt.Errorf("encode scorecard: %w", err)
	}
	_, err = a.store.Put(ctx, Key(card.MatchID, a.now()), bytes.NewReader(body), blob.PutOptions{
		ContentType: "application/json",
		Metadata: map[string]string{
			"match":  card.MatchID,
			"status": string(card.Status),
			"result": card.Result,
			"number": strconv.Itoa(card.Number),
		},
	})
	if err != nil {
		return fmt.Errorf("archive scorecard %s: %w", card.MatchID, err)
	}
	return nil
}

// History lists the archived versions of a match's card, oldest first.
func (a *Archiver) History(ctx context.Context, matchID string) ([]blob.Info, error) {
	return a.store.List(ctx, path.Join(keyPrefix, matchID)+"/")
}

// Latest returns the most recently archived card of a match.
func (a *Archiver) Latest(ctx context.Context, matchID string) (core.Scorecard, error) {
	infos, err := a.History(ctx, matchID)
	if err != nil {
		return core.Scorecard{}, err
	}
	if len(infos) == 0 {
		return core.Scorecard{}, fmt.Errorf("match %s: %w", matchID, ErrNoScorecard)
	}
	_, rc, err := a.store.Get(ctx, infos[len(infos)-1].Key)
	if err != nil {
		return core.Scorecard{}, err
	}
	defer func() { _ = rc.Close() }()
	var card core.Scorecard
	if err := json.NewDecoder(io.LimitReader(rc, 8<<20)).Decode(&card); err != nil {
		return core.Scorecard{}, fmt.Errorf("decode scorecard %s: %w", matchID, err)
	}
	return card, nil
}

// DownloadURL presigns the latest card of a match when the driver supports it.
func (a *Archiver) DownloadURL(ctx context.Context, matchID string, expiry time.Duration) (string, error) {
	infos, err := a.History(ctx, matchID)
	if err != nil {
		return "", err
	}
	if len(infos) == 0 {
		return "", fmt.Errorf("match %s: %w", matchID, ErrNoScorecard)
	}
	return a.store.PresignURL(ctx, infos[len(infos)-1].Key, blob.SignedURLOptions{Expiry: expiry})
}

// Driver reports the backing store's driver.
func (a *Archiver) Driver() blob.Driver { return a.store.Driver() }
