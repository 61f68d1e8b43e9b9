package stores

import "context"

// mutation is one optimistic cache mutation: Apply changes local state
// immediately, Attempt performs the server call, and then exactly one of
// Commit (reconcile with the authoritative response) or Rollback (restore
// the pre-mutation snapshot) runs. Every mutating operation on every
// domain cache goes through runOptimistic, so the apply/attempt/settle
// sequence exists once, not once per store.
type mutation struct {
	Apply    func()
	Attempt  func(ctx context.Context) error
	Commit   func()
	Rollback func()
}

func runOptimistic(ctx context.Context, m mutation) error {
	if m.Apply != nil {
		m.Apply()
	}
	if err := m.Attempt(ctx); err != nil {
		if m.Rollback != nil {
			m.Rollback()
		}
		return err
	}
	if m.Commit != nil {
		m.Commit()
	}
	return nil
}
