package pack

import (
	"errors"
	"fmt"

	"github.com/pinpt/gitpack/gitpack/object"
	"github.com/pinpt/gitpack/gitpack/pkg/logger"
	"github.com/pinpt/gitpack/gitpack/store"
)

// Resolve expands every deltified entry of a parsed pack in place. Ofs
// bases come from earlier entries of the same pack; ref bases from
// already-materialized entries first, then from the object store.
//
// Expansion runs as a work-list fixpoint rather than by recursion, so a
// chain of thousands of deltas costs bounded stack. Entries are visited
// in on-wire order; ofs bases point strictly backward, so an ofs entry
// only ever waits on a ref chain below it. When a full pass over the
// remaining work makes no progress, the stall is classified: a single
// stuck ref-delta means its base is simply absent, several mean they are
// waiting on one another.
func Resolve(p *Pack, st store.Store, log logger.Logger) error {
	r := &resolver{st: st, log: log}
	r.byID = map[object.ID]*Entry{}
	for _, e := range p.Entries {
		if e.Kind.Materialized() {
			r.byID[e.SHA1] = e
			continue
		}
		r.work = append(r.work, e)
	}
	r.byOffset = map[int64]*Entry{}
	for _, e := range p.Entries {
		r.byOffset[e.Offset] = e
	}

	for len(r.work) > 0 {
		var deferred []*Entry
		progress := false
		for _, e := range r.work {
			ok, err := r.expand(e)
			if err != nil {
				return err
			}
			if ok {
				progress = true
			} else {
				deferred = append(deferred, e)
			}
		}
		if !progress {
			return r.stall(deferred)
		}
		r.work = deferred
	}
	return nil
}

type resolver struct {
	st       store.Store
	log      logger.Logger
	byOffset map[int64]*Entry
	byID     map[object.ID]*Entry
	work     []*Entry
}

// expand tries to materialize one deltified entry. It reports false when
// the base is not available yet and the entry should be retried.
func (r *resolver) expand(e *Entry) (bool, error) {
	var baseKind object.Kind
	var baseData []byte
	switch e.Kind {
	case object.KindOfsDelta:
		base := r.byOffset[e.BaseOffset]
		if base == nil {
			return false, fmt.Errorf("%w: no entry at offset %d", ErrDanglingOffsetDelta, e.BaseOffset)
		}
		if !base.Kind.Materialized() {
			return false, nil
		}
		baseKind, baseData = base.Kind, base.Payload
	case object.KindRefDelta:
		if base, ok := r.byID[e.BaseID]; ok {
			baseKind, baseData = base.Kind, base.Payload
		} else {
			kind, data, err := r.st.Retrieve(e.BaseID, object.KindNone)
			if errors.Is(err, store.ErrNotFound) {
				return false, nil
			}
			if err != nil {
				return false, &StoreError{Err: err}
			}
			r.log.Debug("delta base fetched from store", "base", e.BaseID, "kind", kind)
			baseKind, baseData = kind, data
		}
	default:
		return true, nil
	}

	data, err := ApplyDelta(baseData, e.Payload)
	if err != nil {
		return false, fmt.Errorf("delta at offset %d: %w", e.Offset, err)
	}
	e.Kind = baseKind
	e.Payload = data
	e.SHA1 = object.Hash(baseKind, data)
	r.byID[e.SHA1] = e
	return true, nil
}

// stall turns a no-progress pass into a terminal error. The cycle
// classification is a heuristic: with only SHA-1 ids to go on, several
// stuck ref-deltas cannot be told apart from several independently
// missing bases, so two or more are reported as a loop with every
// waiting id listed.
func (r *resolver) stall(stuck []*Entry) error {
	var refs []*Entry
	for _, e := range stuck {
		if e.Kind == object.KindRefDelta {
			refs = append(refs, e)
		}
	}
	if len(refs) == 1 {
		return fmt.Errorf("%w: %v", ErrMissingBase, refs[0].BaseID)
	}
	if len(refs) > 1 {
		ids := make([]string, len(refs))
		for i, e := range refs {
			ids[i] = e.BaseID.String()
		}
		return fmt.Errorf("%w: %d entries waiting on %v", ErrCyclicDelta, len(refs), ids)
	}
	// Ofs entries can only stall behind a ref entry, which the parser
	// guarantees is present in the work list too.
	return fmt.Errorf("%w: %d ofs-delta entries stuck", ErrDanglingOffsetDelta, len(stuck))
}
