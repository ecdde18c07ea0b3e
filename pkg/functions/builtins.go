package functions

import (
	"context"
	"fmt"
	"io"
	"math/rand/v2"
	"os"

	"github.com/google/uuid"

	"github.com/TFMV/masquerade/pkg/core"
	"github.com/TFMV/masquerade/pkg/corpus"
	"github.com/TFMV/masquerade/pkg/pattern"
	"github.com/TFMV/masquerade/pkg/pool"
	"github.com/TFMV/masquerade/pkg/temporal"
	"github.com/TFMV/masquerade/pkg/words"
)

// Opener opens pool files by location.
type Opener interface {
	Open(ctx context.Context, location string) (io.ReadCloser, error)
}

// Deps are the shared resources behind the built-in generators.
type Deps struct {
	Rand       *rand.Rand
	Pools      *pool.Cache
	Dictionary *words.Dictionary
	// Sources opens randomStringFromFile locations. Nil means local files only.
	Sources Opener
	// MaxRepeat caps unbounded pattern repetition. Zero means pattern.DefaultMaxRepeat.
	MaxRepeat int
}

type localFiles struct{}

func (localFiles) Open(_ context.Context, location string) (io.ReadCloser, error) {
	return os.Open(location)
}

// RegisterBuiltins registers every built-in generator on reg.
func RegisterBuiltins(reg *Registry, deps Deps) error {
	if deps.Rand == nil {
		return fmt.Errorf("builtins need a random source")
	}
	if deps.Pools == nil {
		deps.Pools = pool.NewCache(deps.Rand)
	}
	if deps.Dictionary == nil {
		d, err := words.Bundled()
		if err != nil {
			return err
		}
		deps.Dictionary = d
	}
	if deps.Sources == nil {
		deps.Sources = localFiles{}
	}
	b := &builtins{deps: deps, patterns: pattern.New(deps.Rand, pattern.WithMaxRepeat(deps.MaxRepeat))}

	for _, f := range []struct {
		desc Descriptor
		fn   Func
	}{
		{Descriptor{
			Name:        "randomStringFromPattern",
			Description: "Random string matching a regular expression",
			Params:      []Param{{Name: "pattern", Kind: String, Required: true}},
		}, b.fromPattern},
		{Descriptor{
			Name:        "randomDate",
			Description: "Random date in [start, end) parsed and formatted with format",
			Params:      rangeParams,
		}, b.date},
		{Descriptor{
			Name:        "randomDateTime",
			Description: "Random date-time in [start, end) parsed and formatted with format",
			Params:      rangeParams,
		}, b.dateTime},
		{Descriptor{
			Name:        "randomWords",
			Description: "Up to count dictionary words, at most maxLength characters",
			Params: []Param{
				{Name: "count", Kind: Int, Required: true},
				{Name: "maxLength", Kind: Int, Required: true},
			},
		}, b.words("count", "maxLength")},
		{Descriptor{
			Name:        "randomString",
			Description: "Up to num dictionary words, at most length characters",
			Params: []Param{
				{Name: "num", Kind: Int, Required: true},
				{Name: "length", Kind: Int, Required: true},
			},
		}, b.words("num", "length")},
		{Descriptor{
			Name:         "randomStringFromFile",
			Description:  "Next value from a newline-delimited file; every line is used before any repeats",
			Params:       []Param{{Name: "file", Kind: String, Required: true}},
			ReadsSources: true,
		}, b.fromFile},
		{Descriptor{
			Name:        "randomFirstName",
			Description: "First name from the bundled corpus",
		}, b.fromCorpus(corpus.FirstNames)},
		{Descriptor{
			Name:        "randomLastName",
			Description: "Last name from the bundled corpus",
		}, b.fromCorpus(corpus.LastNames)},
		{Descriptor{
			Name:        "randomCity",
			Description: "City from the bundled corpus",
		}, b.fromCorpus(corpus.Cities)},
		{Descriptor{
			Name:        "randomUUID",
			Description: "Random version 4 UUID",
		}, b.uuid},
		{Descriptor{
			Name:        "randomInt",
			Description: "Random integer in [min, max]",
			Params: []Param{
				{Name: "min", Kind: Int, Required: true},
				{Name: "max", Kind: Int, Required: true},
			},
		}, b.integer},
	} {
		if err := reg.Register(f.desc, f.fn); err != nil {
			return err
		}
	}
	return nil
}

var rangeParams = []Param{
	{Name: "start", Kind: String, Required: true},
	{Name: "end", Kind: String, Required: true},
	{Name: "format", Kind: String, Required: true},
}

type builtins struct {
	deps     Deps
	patterns *pattern.Generator
}

func (b *builtins) fromPattern(_ context.Context, args Args) (any, error) {
	return b.patterns.Generate(args.String("pattern"))
}

func (b *builtins) date(_ context.Context, args Args) (any, error) {
	return temporal.RandomDate(b.deps.Rand, args.String("start"), args.String("end"), args.String("format"))
}

func (b *builtins) dateTime(_ context.Context, args Args) (any, error) {
	return temporal.RandomDateTime(b.deps.Rand, args.String("start"), args.String("end"), args.String("format"))
}

func (b *builtins) words(count, length string) Func {
	return func(_ context.Context, args Args) (any, error) {
		return b.deps.Dictionary.RandomWords(b.deps.Rand, args.Int(count), args.Int(length))
	}
}

func (b *builtins) fromFile(ctx context.Context, args Args) (any, error) {
	file := args.String("file")
	return b.deps.Pools.NextFrom(file, func() (io.ReadCloser, error) {
		return b.deps.Sources.Open(ctx, file)
	})
}

func (b *builtins) fromCorpus(name string) Func {
	return func(context.Context, Args) (any, error) {
		return b.deps.Pools.NextFrom("corpus:"+name, func() (io.ReadCloser, error) {
			return corpus.Open(name)
		})
	}
}

func (b *builtins) uuid(context.Context, Args) (any, error) {
	id, err := uuid.NewRandomFromReader(randReader{b.deps.Rand})
	if err != nil {
		return nil, err
	}
	return id.String(), nil
}

func (b *builtins) integer(_ context.Context, args Args) (any, error) {
	lo, hi := int64(args.Int("min")), int64(args.Int("max"))
	if hi < lo {
		return nil, fmt.Errorf("%w: max %d is below min %d", core.ErrInvalidRange, hi, lo)
	}
	if span := hi - lo + 1; span > 0 {
		return lo + b.deps.Rand.Int64N(span), nil
	}
	// span overflowed: the range covers more than half of int64
	for {
		if v := int64(b.deps.Rand.Uint64()); v >= lo && v <= hi {
			return v, nil
		}
	}
}

// randReader adapts a seeded source to io.Reader so UUIDs follow the seed.
type randReader struct {
	rng *rand.Rand
}

func (r randReader) Read(p []byte) (int, error) {
	for i := 0; i < len(p); i += 8 {
		v := r.rng.Uint64()
		for j := 0; j < 8 && i+j < len(p); j++ {
			p[i+j] = byte(v >> (8 * j))
		}
	}
	return len(p), nil
}
