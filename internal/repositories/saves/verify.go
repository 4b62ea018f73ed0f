package saves

import (
	"context"
	"encoding/json"
	"sort"
	"strings"

	"github.com/KirkDiggler/dungeonbreak/internal/errors"
	redisclient "github.com/KirkDiggler/dungeonbreak/internal/redis"
	"github.com/KirkDiggler/dungeonbreak/internal/replay"
)

// Reasons a stored save cannot be resumed
const (
	ReasonCorruptJSON     = "corrupt json"
	ReasonMissingSnapshot = "missing snapshot"
	ReasonHashMismatch    = "snapshot hash mismatch"
)

const scanBatch = 100

// Problem is one save key that failed verification.
type Problem struct {
	Key    string
	SaveID string
	Reason string
}

// VerifyReport is the outcome of a full scan.
type VerifyReport struct {
	Checked  int
	Problems []Problem
}

// VerifyRedis scans every save key, decodes it and re-hashes its snapshot.
// Index sets are skipped. When remove is set, failing keys are deleted and
// their index entries are left for ListByPlayer to clean up.
func VerifyRedis(ctx context.Context, client redisclient.Client, remove bool) (*VerifyReport, error) {
	if client == nil {
		return nil, errors.InvalidArgument("client cannot be nil")
	}

	report := &VerifyReport{}
	iter := client.Scan(ctx, 0, saveKeyPrefix+"*", scanBatch).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		if strings.HasPrefix(key, playerIndexPrefix) {
			continue
		}
		report.Checked++

		data, err := client.Get(ctx, key).Result()
		if err != nil {
			// expired between scan and read
			continue
		}

		if reason := verifyPayload([]byte(data)); reason != "" {
			report.Problems = append(report.Problems, Problem{
				Key:    key,
				SaveID: strings.TrimPrefix(key, saveKeyPrefix),
				Reason: reason,
			})
		}
	}
	if err := iter.Err(); err != nil {
		return nil, errors.Wrapf(err, "failed to scan save keys")
	}
	sort.Slice(report.Problems, func(i, j int) bool {
		return report.Problems[i].Key < report.Problems[j].Key
	})

	if remove {
		for _, problem := range report.Problems {
			if err := client.Del(ctx, problem.Key).Err(); err != nil {
				return report, errors.Wrapf(err, "failed to delete %s", problem.Key)
			}
		}
	}
	return report, nil
}

func verifyPayload(data []byte) string {
	save := &Save{}
	if err := json.Unmarshal(data, save); err != nil {
		return ReasonCorruptJSON
	}
	if save.Snapshot == nil {
		return ReasonMissingSnapshot
	}
	if save.SnapshotHash == "" {
		return ""
	}
	hash, err := replay.Hash(save.Snapshot)
	if err != nil || hash != save.SnapshotHash {
		return ReasonHashMismatch
	}
	return ""
}
