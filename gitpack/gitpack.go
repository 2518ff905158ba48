// Package gitpack parses and assembles version-2 Git packs. The Engine
// ties together the wire parser, the delta resolver and the pack builder;
// the object store, the compression codec and the log sink are supplied
// by the caller.
package gitpack

import (
	"os"

	"github.com/pinpt/gitpack/gitpack/builder"
	"github.com/pinpt/gitpack/gitpack/codec"
	"github.com/pinpt/gitpack/gitpack/object"
	"github.com/pinpt/gitpack/gitpack/pack"
	"github.com/pinpt/gitpack/gitpack/pkg/logger"
	"github.com/pinpt/gitpack/gitpack/store"
)

// Opts is configuration for an Engine.
type Opts struct {
	// Store is consulted for ref-delta bases during a parse and walked
	// during a build. Required.
	Store store.Store

	// Codec inflates and deflates entry payloads. If nil, the zlib
	// codec is used.
	Codec codec.Codec

	// Logger object for info and debug. If nil, logs to stdout.
	Logger logger.Logger
}

// Engine is the pack engine facade. It is synchronous and single-threaded
// with respect to one pack; the store and codec calls are its only
// external waits.
type Engine struct {
	opts Opts
}

func New(opts Opts) *Engine {
	if opts.Codec == nil {
		opts.Codec = codec.NewZlib()
	}
	if opts.Logger == nil {
		opts.Logger = logger.NewDefaultLogger(os.Stdout)
	}
	s := &Engine{}
	s.opts = opts
	return s
}

// ParsePack decodes a pack buffer and resolves every deltified entry, so
// each returned entry carries a materialized kind, payload and id. On any
// failure no entries are returned. The buffer must not be mutated while
// ParsePack runs; entries own their inflated payloads.
func (s *Engine) ParsePack(data []byte) (*pack.Pack, error) {
	p, err := pack.Parse(data, s.opts.Codec)
	if err != nil {
		s.opts.Logger.Error("pack parse failed", "err", err)
		return nil, err
	}
	counts := p.KindCounts()
	s.opts.Logger.Debug("pack parsed",
		"entries", len(p.Entries),
		"ofs-deltas", counts[object.KindOfsDelta],
		"ref-deltas", counts[object.KindRefDelta])
	if err := pack.Resolve(p, s.opts.Store, s.opts.Logger); err != nil {
		s.opts.Logger.Error("delta resolution failed", "err", err)
		return nil, err
	}
	s.opts.Logger.Info("pack parsed", "entries", len(p.Entries), "checksum", p.Checksum)
	return p, nil
}

// BuildPack assembles a pack holding everything reachable from the given
// commits that the store does not already hold in a pack; trees already
// in a pack are not descended into. The caller
// decides whether to hand the result to Store.PersistPack; the engine
// itself writes nothing.
func (s *Engine) BuildPack(roots []object.ID) ([]byte, error) {
	b := builder.New(builder.Opts{
		Store:  s.opts.Store,
		Codec:  s.opts.Codec,
		Logger: s.opts.Logger,
	})
	data, err := b.Build(roots)
	if err != nil {
		s.opts.Logger.Error("pack build failed", "err", err)
		return nil, err
	}
	s.opts.Logger.Info("pack built", "bytes", len(data))
	return data, nil
}
