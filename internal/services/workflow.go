package services

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"groupboard/internal/events"
	"groupboard/internal/metrics"
	"groupboard/internal/models"
	"groupboard/internal/storage"
)

// workflow holds what every service needs: the store, the authority, the
// event publisher and the per-call store timeout.
type workflow struct {
	store     *storage.Store
	authority MembershipAuthority
	publisher events.Publisher
	timeout   time.Duration
	now       func() time.Time
}

func newWorkflow(store *storage.Store, authority MembershipAuthority, publisher events.Publisher, timeout time.Duration) workflow {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return workflow{
		store:     store,
		authority: authority,
		publisher: publisher,
		timeout:   timeout,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func (w *workflow) begin(ctx context.Context) (context.Context, context.CancelFunc) {
	return withTimeout(ctx, w.timeout)
}

// transact runs fn in one transaction. fn returns service errors; anything
// else came from opening or committing the transaction and is mapped here.
func (w *workflow) transact(ctx context.Context, op string, payload interface{}, fn func(tx *storage.Repositories) error) error {
	err := w.store.Transaction(ctx, fn)
	if err == nil || isServiceError(err) {
		return err
	}
	return storeFailure(ctx, op, payload, err)
}

// requireRole fails with ErrUnauthorized unless the caller is a member of
// the group, and an admin when admin is set.
func (w *workflow) requireRole(ctx context.Context, callerID, groupID uint, admin bool) (models.RoleID, error) {
	role, err := w.authority.GroupRole(ctx, callerID, groupID)
	if err != nil {
		return 0, storeFailure(ctx, "group role", map[string]uint{"userId": callerID, "groupId": groupID}, err)
	}
	if role == 0 || (admin && role != models.RoleAdmin) {
		return 0, ErrUnauthorized
	}
	return role, nil
}

// loadGroup returns ErrGroupNotFound for a missing group. Deleted groups are returned.
func (w *workflow) loadGroup(ctx context.Context, groupID uint) (*models.MessageGroup, error) {
	group, err := w.store.Groups.GetGroupByID(ctx, groupID)
	if storage.IsNotFound(err) {
		return nil, ErrGroupNotFound
	}
	if err != nil {
		return nil, storeFailure(ctx, "get group", groupID, err)
	}
	return group, nil
}

// loadLiveGroup is loadGroup that also rejects soft-deleted groups.
func (w *workflow) loadLiveGroup(ctx context.Context, groupID uint) (*models.MessageGroup, error) {
	group, err := w.loadGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}
	if group.IsDeleted {
		return nil, ErrGroupDeleted
	}
	return group, nil
}

// step is one best-effort action run after a commit.
type step struct {
	name string
	run  func(ctx context.Context) error
}

// afterCommit runs steps in order. A failing step is logged and counted and
// the next one still runs; nothing is returned to the caller. Steps get a
// fresh deadline detached from the request, which may already be done.
func (w *workflow) afterCommit(ctx context.Context, name string, steps ...step) {
	base := context.WithoutCancel(ctx)
	for _, s := range steps {
		stepCtx, cancel := withTimeout(base, w.timeout)
		err := s.run(stepCtx)
		cancel()
		if err != nil {
			log.Warn().Err(err).Str("workflow", name).Str("step", s.name).Msg("post-commit step failed")
			metrics.SideEffectFailures.WithLabelValues(name, s.name).Inc()
		}
	}
}

func (w *workflow) publishStep(e events.Event) step {
	return step{name: "publish " + string(e.Type), run: func(ctx context.Context) error {
		if e.OccurredAt.IsZero() {
			e.OccurredAt = w.now()
		}
		return w.publisher.Publish(ctx, e)
	}}
}
