// Package batch commits record mutations in bounded atomic groups.
package batch

import (
	"context"
	"fmt"

	"clubhours/internal/observability"
	"clubhours/worklog"

	"github.com/sirupsen/logrus"
)

// DefaultLimit is the largest number of operations committed in one group.
const DefaultLimit = 400

// GroupWriter commits one group of operations atomically.
type GroupWriter interface {
	CommitGroup(ctx context.Context, creates []worklog.Entry, updates []worklog.Patch) ([]string, error)
}

type Result struct {
	GroupsCommitted int
	TotalGroups     int
	CreatedIDs      []string
	Updated         int
}

// PartialCommitError reports a failed group. Groups before it stay committed.
type PartialCommitError struct {
	GroupsCommitted int
	TotalGroups     int
	Err             error
}

func (e *PartialCommitError) Error() string {
	return fmt.Sprintf("commit group %d of %d: %v", e.GroupsCommitted+1, e.TotalGroups, e.Err)
}

func (e *PartialCommitError) Unwrap() error {
	return e.Err
}

type Committer struct {
	writer GroupWriter
	limit  int
	log    logrus.FieldLogger
}

func NewCommitter(writer GroupWriter, limit int, log logrus.FieldLogger) *Committer {
	if limit <= 0 {
		limit = DefaultLimit
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Committer{writer: writer, limit: limit, log: log}
}

func (c *Committer) Limit() int {
	return c.limit
}

type group struct {
	creates []worklog.Entry
	updates []worklog.Patch
}

// Commit writes creates followed by updates in groups of at most Limit
// operations, one group after another. On failure the returned Result and
// *PartialCommitError describe what was already committed.
func (c *Committer) Commit(ctx context.Context, creates []worklog.Entry, updates []worklog.Patch) (*Result, error) {
	groups := c.split(creates, updates)
	result := &Result{TotalGroups: len(groups), CreatedIDs: make([]string, 0, len(creates))}

	for i, g := range groups {
		ids, err := c.writer.CommitGroup(ctx, g.creates, g.updates)
		if err != nil {
			observability.RecordGroupFailed()
			c.log.WithFields(logrus.Fields{
				"group":     i + 1,
				"groups":    len(groups),
				"committed": result.GroupsCommitted,
			}).WithError(err).Error("batch group failed")
			return result, &PartialCommitError{GroupsCommitted: result.GroupsCommitted, TotalGroups: len(groups), Err: err}
		}

		observability.RecordGroupCommitted()
		result.GroupsCommitted++
		result.CreatedIDs = append(result.CreatedIDs, ids...)
		result.Updated += len(g.updates)
		c.log.WithFields(logrus.Fields{
			"group":   i + 1,
			"groups":  len(groups),
			"creates": len(g.creates),
			"updates": len(g.updates),
		}).Debug("batch group committed")
	}

	return result, nil
}

func (c *Committer) split(creates []worklog.Entry, updates []worklog.Patch) []group {
	total := len(creates) + len(updates)
	if total == 0 {
		return nil
	}

	groups := make([]group, 0, (total+c.limit-1)/c.limit)
	current := group{}
	size := 0
	flush := func() {
		groups = append(groups, current)
		current = group{}
		size = 0
	}

	for _, entry := range creates {
		current.creates = append(current.creates, entry)
		size++
		if size == c.limit {
			flush()
		}
	}
	for _, patch := range updates {
		current.updates = append(current.updates, patch)
		size++
		if size == c.limit {
			flush()
		}
	}
	if size > 0 {
		flush()
	}
	return groups
}
