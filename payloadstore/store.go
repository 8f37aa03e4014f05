// Package payloadstore parks rendered payload documents so the client can
// load them separately from the markup.
//
// Every route has a generation. A document is written only if the route's
// generation did not move since the render started, and a read drops frames
// written under an older generation:
//
//	obs := store.SnapshotGen(ctx, route)   // before rendering
//	doc, _ := app.Render(ctx, page)
//	_ = store.PutWithGen(ctx, route, doc, obs)
//
// Keys: payload:<ns>:<route>
package payloadstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/unkn0wn-root/asyncdata"
	"github.com/unkn0wn-root/asyncdata/codec"
	gen "github.com/unkn0wn-root/asyncdata/genstore"
	"github.com/unkn0wn-root/asyncdata/internal/wire"
	pr "github.com/unkn0wn-root/asyncdata/provider"
)

const defaultTTL = time.Minute

type Options struct {
	// Required
	Namespace string
	Provider  pr.Provider

	// Codec encodes documents on write; reads use the codec recorded in
	// the frame. Must report its media type (JSON, msgpack, CBOR or
	// protobuf). Default JSON.
	Codec     codec.Codec[asyncdata.Document]
	MaxDecode int              // reject frames with a larger payload; 0 = no limit
	TTL       time.Duration    // default 1m
	GenStore  gen.GenStore     // default in-process
	Logger    asyncdata.Logger // default NopLogger
	Hooks     asyncdata.Hooks  // default NopHooks
	Disabled  bool             // Get misses, Put is a no-op
}

type Store struct {
	ns       string
	provider pr.Provider
	codec    codec.Codec[asyncdata.Document]
	format   wire.Format
	maxDec   int
	ttl      time.Duration
	gen      gen.GenStore
	log      asyncdata.Logger
	hooks    asyncdata.Hooks
	enabled  bool
}

func New(opts Options) (*Store, error) {
	if opts.Provider == nil {
		return nil, fmt.Errorf("payloadstore: provider is required")
	}
	if opts.Namespace == "" {
		return nil, fmt.Errorf("payloadstore: namespace is required")
	}

	s := &Store{
		ns:       opts.Namespace,
		provider: opts.Provider,
		maxDec:   opts.MaxDecode,
		enabled:  !opts.Disabled,
	}
	if opts.Codec != nil {
		s.codec = opts.Codec
	} else {
		s.codec = codec.JSON[asyncdata.Document]{}
	}
	f, err := formatOf(s.codec)
	if err != nil {
		return nil, err
	}
	s.format = f

	// defaults
	s.ttl = opts.TTL
	if s.ttl <= 0 {
		s.ttl = defaultTTL
	}
	if opts.Logger != nil {
		s.log = opts.Logger
	} else {
		s.log = asyncdata.NopLogger{}
	}
	if opts.Hooks != nil {
		s.hooks = opts.Hooks
	} else {
		s.hooks = asyncdata.NopHooks{}
	}
	if opts.GenStore != nil {
		s.gen = opts.GenStore
	} else {
		s.gen = gen.NewLocalGenStore()
	}
	return s, nil
}

func formatOf(c codec.Codec[asyncdata.Document]) (wire.Format, error) {
	t, ok := c.(codec.Typed)
	if !ok {
		return 0, errors.New("payloadstore: codec must report its media type")
	}
	switch codec.MediaType(t.ContentType()) {
	case codec.MediaJSON:
		return wire.FormatJSON, nil
	case codec.MediaMsgpack:
		return wire.FormatMsgpack, nil
	case codec.MediaCBOR:
		return wire.FormatCBOR, nil
	case codec.MediaProtobuf:
		return wire.FormatProtobuf, nil
	}
	return 0, fmt.Errorf("payloadstore: unsupported media type %q", t.ContentType())
}

func decoderFor(f wire.Format) codec.Codec[asyncdata.Document] {
	switch f {
	case wire.FormatMsgpack:
		return codec.Msgpack[asyncdata.Document]{}
	case wire.FormatCBOR:
		return codec.MustCBOR[asyncdata.Document](false)
	case wire.FormatProtobuf:
		return codec.Struct[asyncdata.Document]{}
	}
	return codec.JSON[asyncdata.Document]{}
}

func (s *Store) Enabled() bool { return s.enabled }

// ContentType is the media type documents are written with.
func (s *Store) ContentType() string { return s.codec.(codec.Typed).ContentType() }

func (s *Store) key(route string) string { return "payload:" + s.ns + ":" + route }

// SnapshotGen returns the route's current generation. A failing generation
// store yields an error; callers should then skip the write.
func (s *Store) SnapshotGen(ctx context.Context, route string) (uint64, error) {
	return s.gen.Snapshot(ctx, s.key(route))
}

// Get returns the parked document for route. Corrupt frames, frames from an
// older generation and undecodable payloads are deleted and reported as a
// miss.
func (s *Store) Get(ctx context.Context, route string) (asyncdata.Document, bool, error) {
	var zero asyncdata.Document
	if !s.enabled {
		return zero, false, nil
	}
	k := s.key(route)
	raw, ok, err := s.provider.Get(ctx, k)
	if err != nil || !ok {
		return zero, false, err
	}
	g, f, payload, err := wire.Decode(raw)
	if err != nil {
		s.heal(ctx, k, "corrupt")
		return zero, false, nil
	}
	cur, err := s.gen.Snapshot(ctx, k)
	if err != nil {
		return zero, false, err
	}
	if g != cur {
		s.heal(ctx, k, "gen_mismatch")
		return zero, false, nil
	}
	dec := codec.LimitCodec[asyncdata.Document]{Inner: decoderFor(f), MaxDecode: s.maxDec}
	doc, err := dec.Decode(payload)
	if err != nil {
		s.heal(ctx, k, "decode")
		return zero, false, nil
	}
	return doc, true, nil
}

func (s *Store) heal(ctx context.Context, k, reason string) {
	_ = s.provider.Del(ctx, k)
	s.hooks.PayloadSelfHeal(k, reason)
	s.log.Debug("payloadstore: dropped frame", asyncdata.Fields{"key": k, "reason": reason})
}

// Put stores doc under the route's current generation.
func (s *Store) Put(ctx context.Context, route string, doc asyncdata.Document) error {
	obs, err := s.SnapshotGen(ctx, route)
	if err != nil {
		return err
	}
	return s.PutWithGen(ctx, route, doc, obs)
}

// PutWithGen stores doc iff the route's generation still equals observed.
// A moved generation skips the write without an error.
func (s *Store) PutWithGen(ctx context.Context, route string, doc asyncdata.Document, observed uint64) error {
	if !s.enabled {
		return nil
	}
	k := s.key(route)
	cur, err := s.gen.Snapshot(ctx, k)
	if err != nil {
		return err
	}
	if cur != observed {
		s.log.Debug("payloadstore: write skipped (gen mismatch)", asyncdata.Fields{"route": route, "obs": observed, "cur": cur})
		return nil
	}
	payload, err := s.codec.Encode(doc)
	if err != nil {
		return fmt.Errorf("payloadstore: encode %q: %w", route, err)
	}
	frame := wire.Encode(observed, s.format, payload)
	ok, err := s.provider.Set(ctx, k, frame, int64(len(frame)), s.ttl)
	if err != nil {
		return err
	}
	if !ok {
		s.hooks.ProviderSetRejected(k)
		s.log.Debug("payloadstore: write rejected by provider", asyncdata.Fields{"route": route})
	}
	return nil
}

// Invalidate bumps the route's generation and drops its frame. Renders
// started before the call cannot park their document afterwards.
func (s *Store) Invalidate(ctx context.Context, route string) error {
	if !s.enabled {
		return nil
	}
	k := s.key(route)
	g, err := s.gen.Bump(ctx, k)
	if err != nil {
		return err
	}
	_ = s.provider.Del(ctx, k)
	s.log.Debug("payloadstore: invalidated", asyncdata.Fields{"route": route, "gen": g})
	return nil
}

func (s *Store) Close(ctx context.Context) error {
	_ = s.gen.Close(ctx)
	return s.provider.Close(ctx)
}
