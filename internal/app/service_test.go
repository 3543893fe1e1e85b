package service_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/jonboulle/clockwork"

	"github.com/okian/podium/internal/adapters/repository"
	service "github.com/okian/podium/internal/app"
	"github.com/okian/podium/internal/domain/model"
	"github.com/okian/podium/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	// Initialize logging for tests
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

const (
	admin = "root"
	year  = 2025
)

var (
	ctx     = context.Background()
	outcome = []string{"A", "B", "C", "D", "E", "F", "G", "H", "I", "J"}
)

// seedStore builds a store with:
//   - ann: full event prediction with slots 1/2 swapped (66 points)
//   - bob: only three event picks, plus season picks that must be ignored
//   - cat: season picks only, one of them inactive
//   - root: admin with an exact prediction (never on the leaderboard)
//   - dan: no predictions at all
func seedStore(event model.EventID) *repository.MemoryStore {
	s, err := repository.NewMemoryStore(ctx)
	So(err, ShouldBeNil)

	for _, p := range []model.Participant{
		{ID: "ann", DisplayName: "Ann"},
		{ID: "bob", DisplayName: "Bob"},
		{ID: "cat", DisplayName: "Cat"},
		{ID: "dan", DisplayName: "Dan"},
		{ID: admin, DisplayName: "Admin", Admin: true},
	} {
		So(s.PutParticipant(ctx, p), ShouldBeNil)
	}
	for _, id := range outcome {
		So(s.PutEntity(ctx, model.Entity{ID: id, Active: true}), ShouldBeNil)
	}
	So(s.PutEntity(ctx, model.Entity{ID: "X", Active: false}), ShouldBeNil)

	put := func(participant string, scope model.Scope, ids ...string) {
		for i, id := range ids {
			So(s.PutPrediction(ctx, model.Prediction{ParticipantID: participant, EntityID: id, Scope: scope, Slot: i + 1}), ShouldBeNil)
		}
	}
	put("ann", model.EventScope(event), "B", "A", "C", "D", "E", "F", "G", "H", "I", "J")
	put("bob", model.EventScope(event), "A", "B", "C")
	put("bob", model.SeasonScope(year), "J", "I", "H", "G", "F", "E", "D", "C", "B", "A")
	put("cat", model.SeasonScope(year), "X", "A", "B", "C")
	put(admin, model.EventScope(event), outcome...)
	return s
}

func newService(store repository.Store, opts ...service.Option) *service.Service {
	opts = append([]service.Option{
		service.WithStore(store),
		service.WithSeasonYear(year),
		service.WithWorkerCount(4),
		service.WithLogger(logger.Nop()),
		service.WithClock(clockwork.NewFakeClockAt(time.Date(2025, 5, 4, 15, 0, 0, 0, time.UTC))),
	}, opts...)
	svc := service.New(opts...)
	So(svc.Start(ctx), ShouldBeNil)
	return svc
}

func rowsByParticipant(rows []model.ScoreRow) map[string]model.ScoreRow {
	out := make(map[string]model.ScoreRow, len(rows))
	for _, r := range rows {
		out[r.ParticipantID] = r
	}
	return out
}

func TestFinish(t *testing.T) {
	Convey("Given a seeded store and a started service", t, func() {
		store := seedStore(3)
		svc := newService(store)
		defer svc.Stop()

		Convey("When an admin finishes the event", func() {
			res, err := svc.Finish(ctx, admin, 3, outcome)
			So(err, ShouldBeNil)

			Convey("Then participants with usable picks are scored", func() {
				So(res.ParticipantsScored, ShouldEqual, 3)
				So(res.FallbackUsed, ShouldEqual, 1)
				So(res.Recompute, ShouldBeFalse)
				So(res.PassID, ShouldNotBeEmpty)
			})

			Convey("Then each row matches the scoring rules", func() {
				detail, err := svc.EventDetail(ctx, 3)
				So(err, ShouldBeNil)
				So(detail.State, ShouldEqual, model.StateFinished)
				So(detail.Outcome.FinalizedAt, ShouldEqual, time.Date(2025, 5, 4, 15, 0, 0, 0, time.UTC))

				rows := rowsByParticipant(detail.Rows)
				So(rows, ShouldHaveLength, 3)
				So(rows, ShouldNotContainKey, admin)
				So(rows, ShouldNotContainKey, "dan")

				So(rows["ann"].TotalPoints, ShouldEqual, 66)
				So(rows["ann"].PerfectMatches, ShouldEqual, 8)
				So(rows["ann"].Provenance, ShouldEqual, model.ProvenanceOwn)

				// bob's three exact picks win both bonuses; season picks are ignored
				So(rows["bob"].Details, ShouldHaveLength, 3)
				So(rows["bob"].TotalPoints, ShouldEqual, 21+3+5)
				So(rows["bob"].Provenance, ShouldEqual, model.ProvenanceOwn)

				// cat falls back to A, B, C after the inactive X is dropped
				So(rows["cat"].Provenance, ShouldEqual, model.ProvenanceFallback)
				So(rows["cat"].Details[0].EntityID, ShouldEqual, "A")
				So(rows["cat"].Details[0].PredictedSlot, ShouldEqual, 1)
				So(rows["cat"].TotalPoints, ShouldEqual, 29)
			})

			Convey("And the same outcome is finished again", func() {
				before, err := svc.EventDetail(ctx, 3)
				So(err, ShouldBeNil)

				again, err := svc.Finish(ctx, admin, 3, outcome)
				So(err, ShouldBeNil)

				Convey("Then rows are replaced, not duplicated, with identical content", func() {
					So(again.Recompute, ShouldBeTrue)
					after, err := svc.EventDetail(ctx, 3)
					So(err, ShouldBeNil)
					So(cmp.Diff(before.Rows, after.Rows), ShouldBeEmpty)

					all, err := store.AllScoreRows(ctx)
					So(err, ShouldBeNil)
					So(all, ShouldHaveLength, 3)
				})
			})

			Convey("And a corrected outcome is finished", func() {
				corrected := []string{"B", "A", "C", "D", "E", "F", "G", "H", "I", "J"}
				_, err := svc.Finish(ctx, admin, 3, corrected)
				So(err, ShouldBeNil)

				Convey("Then every row reflects the correction", func() {
					detail, err := svc.EventDetail(ctx, 3)
					So(err, ShouldBeNil)
					So(detail.Outcome.Order, ShouldResemble, corrected)
					rows := rowsByParticipant(detail.Rows)
					So(rows["ann"].TotalPoints, ShouldEqual, 78)
					So(rows["bob"].Bonus.Pole, ShouldBeFalse)
				})
			})

			Convey("And a participant loses their picks before a recompute", func() {
				clean := seedStore(3)
				So(clean.DeleteScoreRows(ctx, 3), ShouldBeNil)
				prior, err := store.ScoreRows(ctx, 3)
				So(err, ShouldBeNil)
				for _, r := range prior {
					So(clean.UpsertScoreRow(ctx, r), ShouldBeNil)
				}
				// a row for someone who no longer predicts anything
				So(clean.UpsertScoreRow(ctx, model.ScoreRow{ParticipantID: "dan", Event: 3, TotalPoints: 9}), ShouldBeNil)
				svc2 := newService(clean)

				res, err := svc2.Finish(ctx, admin, 3, outcome)
				So(err, ShouldBeNil)

				Convey("Then the stale row is removed", func() {
					So(res.StaleRowsRemoved, ShouldEqual, 1)
					rows, err := clean.ScoreRows(ctx, 3)
					So(err, ShouldBeNil)
					So(rowsByParticipant(rows), ShouldNotContainKey, "dan")
				})
			})
		})

		Convey("When the outcome is longer than ten", func() {
			long := append(append([]string{}, outcome...), "K", "L")
			_, err := svc.Finish(ctx, admin, 3, long)
			So(err, ShouldBeNil)

			Convey("Then the full order is kept and only the top ten is scored", func() {
				detail, err := svc.EventDetail(ctx, 3)
				So(err, ShouldBeNil)
				So(detail.Outcome.Order, ShouldHaveLength, 12)
				So(rowsByParticipant(detail.Rows)["ann"].TotalPoints, ShouldEqual, 66)
			})
		})
	})
}

func TestFinishRejections(t *testing.T) {
	Convey("Given a started service", t, func() {
		store := seedStore(3)
		svc := newService(store)
		defer svc.Stop()

		Convey("When a non-admin finishes", func() {
			_, err := svc.Finish(ctx, "ann", 3, outcome)
			So(errors.Is(err, service.ErrUnauthorized), ShouldBeTrue)
			So(service.KindOf(err), ShouldEqual, service.KindAuthorization)
		})

		Convey("When an unknown caller finishes", func() {
			_, err := svc.Finish(ctx, "ghost", 3, outcome)
			So(errors.Is(err, service.ErrUnauthorized), ShouldBeTrue)
		})

		Convey("When the order is malformed", func() {
			for _, order := range [][]string{nil, {}, {"A", " "}, {"A", "B", "A"}} {
				_, err := svc.Finish(ctx, admin, 3, order)
				So(errors.Is(err, service.ErrInvalidOutcome), ShouldBeTrue)
			}
			_, err := svc.Finish(ctx, admin, 0, outcome)
			So(service.KindOf(err), ShouldEqual, service.KindValidation)
		})

		Convey("Then nothing was written", func() {
			o, err := store.Outcome(ctx, 3)
			So(err, ShouldBeNil)
			So(o.Finalized, ShouldBeFalse)
			rows, err := store.AllScoreRows(ctx)
			So(err, ShouldBeNil)
			So(rows, ShouldBeEmpty)
		})

		Convey("When the authorizer itself fails", func() {
			broken := newService(store, service.WithAuthorizer(service.AuthorizerFunc(func(context.Context, string) (bool, error) {
				return false, errors.New("directory down")
			})))
			_, err := broken.Finish(ctx, admin, 3, outcome)
			So(service.KindOf(err), ShouldEqual, service.KindPersistence)
		})
	})

	Convey("Given a service that was never started", t, func() {
		svc := service.New(service.WithLogger(logger.Nop()))
		_, err := svc.Finish(ctx, admin, 1, outcome)
		So(err, ShouldNotBeNil)
	})
}

// flakyStore fails the first score row upsert for one participant.
type flakyStore struct {
	repository.Store
	failFor string
	tripped atomic.Bool
}

func (f *flakyStore) UpsertScoreRow(ctx context.Context, r model.ScoreRow) error {
	if r.ParticipantID == f.failFor && f.tripped.CompareAndSwap(false, true) {
		return errors.New("disk full")
	}
	return f.Store.UpsertScoreRow(ctx, r)
}

// failingDeleteStore fails bulk deletes.
type failingDeleteStore struct {
	repository.Store
}

func (f *failingDeleteStore) DeleteScoreRows(context.Context, model.EventID) error {
	return errors.New("connection reset")
}

func TestFinishRollback(t *testing.T) {
	Convey("Given an event finished once", t, func() {
		mem := seedStore(3)
		good := newService(mem)
		_, err := good.Finish(ctx, admin, 3, outcome)
		So(err, ShouldBeNil)
		before, err := good.EventDetail(ctx, 3)
		So(err, ShouldBeNil)

		Convey("When a recompute fails on one participant's row", func() {
			svc := newService(&flakyStore{Store: mem, failFor: "bob"})
			_, err := svc.Finish(ctx, admin, 3, []string{"J", "I", "H", "G", "F", "E", "D", "C", "B", "A"})

			Convey("Then the pass fails as a whole", func() {
				So(errors.Is(err, service.ErrPersistence), ShouldBeTrue)
			})

			Convey("Then the previous outcome and scores are back", func() {
				after, err := good.EventDetail(ctx, 3)
				So(err, ShouldBeNil)
				So(cmp.Diff(before, after), ShouldBeEmpty)
			})
		})
	})

	Convey("Given an open event", t, func() {
		mem := seedStore(5)
		svc := newService(&flakyStore{Store: mem, failFor: "ann"})

		Convey("When the first finish fails", func() {
			_, err := svc.Finish(ctx, admin, 5, outcome)
			So(service.KindOf(err), ShouldEqual, service.KindPersistence)

			Convey("Then the event stays open with no rows", func() {
				o, err := mem.Outcome(ctx, 5)
				So(err, ShouldBeNil)
				So(o.State(), ShouldEqual, model.StateOpen)
				rows, err := mem.ScoreRows(ctx, 5)
				So(err, ShouldBeNil)
				So(rows, ShouldBeEmpty)
			})

			Convey("Then retrying against a healthy store succeeds", func() {
				res, err := newService(mem).Finish(ctx, admin, 5, outcome)
				So(err, ShouldBeNil)
				So(res.ParticipantsScored, ShouldEqual, 3)
			})
		})
	})
}

func TestReopen(t *testing.T) {
	Convey("Given a finished event", t, func() {
		store := seedStore(3)
		svc := newService(store)
		_, err := svc.Finish(ctx, admin, 3, outcome)
		So(err, ShouldBeNil)

		Convey("When an admin reopens it", func() {
			res, err := svc.Reopen(ctx, admin, 3)
			So(err, ShouldBeNil)

			Convey("Then rows and outcome are gone", func() {
				So(res.RowsDeleted, ShouldEqual, 3)
				detail, err := svc.EventDetail(ctx, 3)
				So(err, ShouldBeNil)
				So(detail.State, ShouldEqual, model.StateOpen)
				So(detail.Rows, ShouldBeEmpty)
				So(detail.Outcome.Order, ShouldBeEmpty)
			})

			Convey("Then a fresh finish is unaffected by earlier bonuses", func() {
				_, err := svc.Finish(ctx, admin, 3, []string{"C", "B", "A"})
				So(err, ShouldBeNil)
				detail, err := svc.EventDetail(ctx, 3)
				So(err, ShouldBeNil)
				bob := rowsByParticipant(detail.Rows)["bob"]
				So(bob.Bonus.Pole, ShouldBeFalse)
				So(bob.Bonus.Podium, ShouldBeFalse)
				So(bob.TotalPoints, ShouldEqual, 4+7+4)
			})

			Convey("Then reopening again is a no-op", func() {
				res, err := svc.Reopen(ctx, admin, 3)
				So(err, ShouldBeNil)
				So(res.RowsDeleted, ShouldEqual, 0)
			})
		})

		Convey("When a non-admin reopens it", func() {
			_, err := svc.Reopen(ctx, "ann", 3)
			So(errors.Is(err, service.ErrUnauthorized), ShouldBeTrue)
			rows, err := store.ScoreRows(ctx, 3)
			So(err, ShouldBeNil)
			So(rows, ShouldHaveLength, 3)
		})

		Convey("When the delete fails", func() {
			broken := newService(&failingDeleteStore{Store: store})
			_, err := broken.Reopen(ctx, admin, 3)
			So(service.KindOf(err), ShouldEqual, service.KindPersistence)

			Convey("Then the event is still finished", func() {
				o, err := store.Outcome(ctx, 3)
				So(err, ShouldBeNil)
				So(o.Finalized, ShouldBeTrue)
			})
		})
	})
}

// blockingStore parks SaveOutcome until released.
type blockingStore struct {
	repository.Store
	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

func (b *blockingStore) SaveOutcome(ctx context.Context, o model.Outcome) error {
	b.once.Do(func() {
		close(b.entered)
		<-b.release
	})
	return b.Store.SaveOutcome(ctx, o)
}

func TestConcurrentPasses(t *testing.T) {
	Convey("Given a finish that is still running", t, func() {
		bs := &blockingStore{Store: seedStore(3), entered: make(chan struct{}), release: make(chan struct{})}
		svc := newService(bs)

		done := make(chan error, 1)
		go func() {
			_, err := svc.Finish(ctx, admin, 3, outcome)
			done <- err
		}()
		<-bs.entered

		Convey("Then a second pass on the same event is refused", func() {
			_, err := svc.Reopen(ctx, admin, 3)
			So(errors.Is(err, service.ErrEventBusy), ShouldBeTrue)

			close(bs.release)
			So(<-done, ShouldBeNil)

			_, err = svc.Reopen(ctx, admin, 3)
			So(err, ShouldBeNil)
		})
	})
}

// closingStore records Close and counts writes that arrive afterwards.
type closingStore struct {
	*blockingStore
	closed     atomic.Bool
	lateWrites atomic.Int32
}

func (c *closingStore) UpsertScoreRow(ctx context.Context, r model.ScoreRow) error {
	if c.closed.Load() {
		c.lateWrites.Add(1)
		return errors.New("store is closed")
	}
	return c.blockingStore.UpsertScoreRow(ctx, r)
}

func (c *closingStore) Close() error {
	c.closed.Store(true)
	return nil
}

func TestStopWaitsForRunningPasses(t *testing.T) {
	Convey("Given a finish that is still writing", t, func() {
		bs := &blockingStore{Store: seedStore(3), entered: make(chan struct{}), release: make(chan struct{})}
		cs := &closingStore{blockingStore: bs}
		svc := newService(cs)

		done := make(chan error, 1)
		go func() {
			_, err := svc.Finish(ctx, admin, 3, outcome)
			done <- err
		}()
		<-bs.entered

		Convey("When the service is stopped", func() {
			stopped := make(chan struct{})
			go func() {
				svc.Stop()
				close(stopped)
			}()

			Convey("Then the store stays open until the pass completes", func() {
				returnedEarly := false
				select {
				case <-stopped:
					returnedEarly = true
				case <-time.After(50 * time.Millisecond):
				}
				So(returnedEarly, ShouldBeFalse)
				So(cs.closed.Load(), ShouldBeFalse)

				close(bs.release)
				So(<-done, ShouldBeNil)
				<-stopped

				So(cs.closed.Load(), ShouldBeTrue)
				So(cs.lateWrites.Load(), ShouldEqual, 0)
				rows, err := bs.Store.ScoreRows(ctx, 3)
				So(err, ShouldBeNil)
				So(rows, ShouldHaveLength, 3)
			})

			Convey("Then new operations are refused once it has stopped", func() {
				close(bs.release)
				So(<-done, ShouldBeNil)
				<-stopped

				_, err := svc.Standings(ctx)
				So(service.KindOf(err), ShouldEqual, service.KindPersistence)
				_, err = svc.Finish(ctx, admin, 3, outcome)
				So(service.KindOf(err), ShouldEqual, service.KindPersistence)
			})
		})
	})
}
