package services

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
)

// SweepResult counts the rows removed by one sweep.
type SweepResult struct {
	Codes         int64 `json:"codes" yaml:"codes"`
	AccessTokens  int64 `json:"access_tokens" yaml:"access_tokens"`
	RefreshTokens int64 `json:"refresh_tokens" yaml:"refresh_tokens"`
	McpTokens     int64 `json:"mcp_tokens" yaml:"mcp_tokens"`
}

// Sweeper periodically deletes expired credentials and long-revoked
// McpTokens. Validation never relies on it; it only bounds table growth.
type Sweeper struct {
	store     *CredentialStore
	interval  time.Duration
	retention time.Duration
	now       func() time.Time
	log       logrus.FieldLogger
}

func NewSweeper(store *CredentialStore, interval, retention time.Duration, logger logrus.FieldLogger) *Sweeper {
	return &Sweeper{
		store:     store,
		interval:  interval,
		retention: retention,
		now:       func() time.Time { return time.Now().UTC() },
		log:       logger,
	}
}

// Run sweeps every interval until ctx is cancelled.
func (s *Sweeper) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if _, err := s.SweepOnce(ctx); err != nil {
				s.log.WithError(err).Error("Credential sweep failed")
			}
		}
	}
}

func (s *Sweeper) SweepOnce(ctx context.Context) (SweepResult, error) {
	var res SweepResult
	var err error
	now := s.now()

	if res.Codes, err = s.store.Codes.DeleteExpired(ctx, now); err != nil {
		return res, err
	}
	if res.AccessTokens, err = s.store.AccessTokens.DeleteExpired(ctx, now); err != nil {
		return res, err
	}
	if res.RefreshTokens, err = s.store.RefreshTokens.DeleteExpired(ctx, now); err != nil {
		return res, err
	}
	if res.McpTokens, err = s.store.McpTokens.DeleteRevoked(ctx, now.Add(-s.retention)); err != nil {
		return res, err
	}

	s.log.WithFields(logrus.Fields{
		"codes":          res.Codes,
		"access_tokens":  res.AccessTokens,
		"refresh_tokens": res.RefreshTokens,
		"mcp_tokens":     res.McpTokens,
	}).Info("Credential sweep completed")
	return res, nil
}
