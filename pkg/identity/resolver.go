// Package identity resolves free-form model names from different sources to
// one canonical slug per model.
//
// A Resolver is scoped to a single aggregation pass. Identities are derived
// fresh every pass; a renamed model simply becomes a new identity.
//
// Example usage:
//
//	r := identity.NewResolver()
//	out := r.Resolve(identity.Input{RawName: "GPT-5 (high)", Provider: "openai"})
//	fmt.Println(out.Identity.Slug) // gpt-5-high
package identity

import (
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/agentstation/aigo/pkg/errors"
	"github.com/agentstation/aigo/pkg/logging"
)

// Kind describes how a name was resolved.
type Kind string

const (
	// KindNew registered a new identity.
	KindNew Kind = "new"
	// KindMatched found an identity with the same slug and name.
	KindMatched Kind = "matched"
	// KindAlias attached the name to an existing identity by token match.
	KindAlias Kind = "alias"
	// KindConflict found a different name that normalizes to the same slug.
	KindConflict Kind = "conflict"
	// KindMalformed rejected a name that has no usable slug.
	KindMalformed Kind = "malformed"
)

// AliasReason records why a name was attached to an identity.
type AliasReason string

const (
	// ReasonFuzzy is a token-level prefix/substring match.
	ReasonFuzzy AliasReason = "fuzzy"
	// ReasonCollision is a different raw name with the same slug.
	ReasonCollision AliasReason = "collision"
	// ReasonSlug is the other spelling of a record's slug: its explicit slug
	// or the slug derived from its name.
	ReasonSlug AliasReason = "slug"
)

// Alias is an alternative name of an identity.
type Alias struct {
	Name   string      `json:"name" yaml:"name"`
	Slug   string      `json:"slug" yaml:"slug"`
	Target string      `json:"target" yaml:"target"`
	Reason AliasReason `json:"reason" yaml:"reason"`
}

// Conflict is a logged collision between two raw names with one slug.
type Conflict struct {
	Slug   string `json:"slug" yaml:"slug"`
	Winner string `json:"winner" yaml:"winner"`
	Loser  string `json:"loser" yaml:"loser"`
}

// Identity is the canonical identity of one model within a pass.
type Identity struct {
	Slug         string  `json:"slug" yaml:"slug"`
	DisplayName  string  `json:"display_name" yaml:"display_name"`
	ProviderSlug string  `json:"provider_slug" yaml:"provider_slug"`
	Aliases      []Alias `json:"aliases,omitempty" yaml:"aliases,omitempty"`

	observedAt time.Time
	tokens     []string
}

// Input is one name to resolve.
type Input struct {
	RawName    string
	Slug       string // explicit slug, optional
	Provider   string // provider slug, used to scope fuzzy matches
	ObservedAt time.Time
}

// Outcome is the result of Resolve.
type Outcome struct {
	Kind     Kind
	Identity *Identity // nil when Kind is KindMalformed
	Err      error     // *errors.MalformedRecordError when Kind is KindMalformed
	Conflict *Conflict
	Alias    *Alias
}

// Resolver is the per-pass identity table.
type Resolver struct {
	mu        sync.Mutex
	bySlug    map[string]*Identity
	aliases   map[string]string // alias slug -> canonical slug
	order     []string
	conflicts []Conflict
	logger    *zerolog.Logger
	fuzzy     bool
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithLogger sets the logger used for alias and conflict decisions.
func WithLogger(logger *zerolog.Logger) Option {
	return func(r *Resolver) {
		r.logger = logger
	}
}

// WithoutFuzzy disables the secondary token match.
func WithoutFuzzy() Option {
	return func(r *Resolver) {
		r.fuzzy = false
	}
}

// NewResolver creates an empty identity table.
func NewResolver(opts ...Option) *Resolver {
	r := &Resolver{
		bySlug:  make(map[string]*Identity),
		aliases: make(map[string]string),
		logger:  logging.Default(),
		fuzzy:   true,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve maps a raw name to its canonical identity. It never panics; names
// with no usable slug produce KindMalformed.
//
// A record matches an identity when either its explicit slug or the slug of
// its name is already known. Both forms are kept as aliases of the identity
// so records from sources that spell the slug differently land together.
func (r *Resolver) Resolve(in Input) Outcome {
	name := cleanName(in.RawName)
	nameSlug := Slugify(name)
	slug := NormalizeSlug(in.Slug)
	if slug == "" {
		slug = nameSlug
	}
	if name == "" {
		name = in.Slug
	}
	if slug == "" {
		return Outcome{
			Kind: KindMalformed,
			Err:  errors.NewMalformedRecordError("identity", in.RawName, "name has no slug characters"),
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	provider := Slugify(in.Provider)

	for _, key := range []string{slug, nameSlug} {
		if key == "" {
			continue
		}
		if canonical, ok := r.aliases[key]; ok {
			id := r.bySlug[canonical]
			r.link(id, name, slug, nameSlug)
			return Outcome{Kind: KindMatched, Identity: id}
		}
		if id, ok := r.bySlug[key]; ok {
			r.link(id, name, slug, nameSlug)
			return r.collide(id, name, provider, in.ObservedAt)
		}
	}

	if r.fuzzy {
		if id := r.fuzzyMatch(slug, provider); id != nil {
			alias := Alias{Name: name, Slug: slug, Target: id.Slug, Reason: ReasonFuzzy}
			id.Aliases = append(id.Aliases, alias)
			r.aliases[slug] = id.Slug
			r.link(id, name, slug, nameSlug)
			r.logger.Info().
				Str("alias", name).
				Str("slug", id.Slug).
				Str("reason", string(ReasonFuzzy)).
				Msg("Recorded model alias")
			return Outcome{Kind: KindAlias, Identity: id, Alias: &alias}
		}
	}

	id := &Identity{
		Slug:         slug,
		DisplayName:  name,
		ProviderSlug: provider,
		observedAt:   in.ObservedAt,
		tokens:       Tokens(slug),
	}
	r.bySlug[slug] = id
	r.order = append(r.order, slug)
	r.link(id, name, slug, nameSlug)
	return Outcome{Kind: KindNew, Identity: id}
}

// link records every unclaimed slug of a record as an alias of id. Slugs
// already owned by another identity are left alone.
func (r *Resolver) link(id *Identity, name string, slugs ...string) {
	for _, s := range slugs {
		if s == "" || s == id.Slug {
			continue
		}
		if _, taken := r.bySlug[s]; taken {
			continue
		}
		if _, taken := r.aliases[s]; taken {
			continue
		}
		r.aliases[s] = id.Slug
		id.Aliases = append(id.Aliases, Alias{Name: name, Slug: s, Target: id.Slug, Reason: ReasonSlug})
		r.logger.Debug().
			Str("alias", s).
			Str("slug", id.Slug).
			Str("reason", string(ReasonSlug)).
			Msg("Recorded model alias")
	}
}

// collide handles a second name for an existing slug. Equal names are a
// plain match; different names are a conflict won by the newer observation.
func (r *Resolver) collide(id *Identity, name, provider string, observedAt time.Time) Outcome {
	if id.ProviderSlug == "" {
		id.ProviderSlug = provider
	}
	if strings.EqualFold(id.DisplayName, name) {
		if observedAt.After(id.observedAt) {
			id.observedAt = observedAt
		}
		return Outcome{Kind: KindMatched, Identity: id}
	}

	winner, loser := id.DisplayName, name
	if observedAt.After(id.observedAt) {
		winner, loser = name, id.DisplayName
		id.DisplayName = name
		id.observedAt = observedAt
	}

	conflict := Conflict{Slug: id.Slug, Winner: winner, Loser: loser}
	r.conflicts = append(r.conflicts, conflict)
	if !hasAliasName(id.Aliases, loser) {
		id.Aliases = append(id.Aliases, Alias{Name: loser, Slug: id.Slug, Target: id.Slug, Reason: ReasonCollision})
	}

	r.logger.Warn().
		Str("slug", id.Slug).
		Str("winner", winner).
		Str("loser", loser).
		Msg("Model name conflict")

	return Outcome{Kind: KindConflict, Identity: id, Conflict: &conflict}
}

// fuzzyMatch finds an identity of the same provider whose tokens contain, or
// are contained in, the new tokens as a contiguous run. Extra tokens on the
// longer side must not be qualifiers. The first registered match wins.
func (r *Resolver) fuzzyMatch(slug, provider string) *Identity {
	tokens := Tokens(slug)
	for _, s := range r.order {
		id := r.bySlug[s]
		if provider != "" && id.ProviderSlug != "" && provider != id.ProviderSlug {
			continue
		}
		if tokenMatch(id.tokens, tokens) || tokenMatch(tokens, id.tokens) {
			return id
		}
	}
	return nil
}

// tokenMatch reports whether short appears as a contiguous run inside long
// and every token of long outside that run is noise, not a qualifier.
func tokenMatch(long, short []string) bool {
	if len(short) < 2 || len(long) <= len(short) {
		return false
	}
	for start := 0; start+len(short) <= len(long); start++ {
		if !slices.Equal(long[start:start+len(short)], short) {
			continue
		}
		extra := slices.Concat(long[:start], long[start+len(short):])
		if !slices.ContainsFunc(extra, IsQualifier) {
			return true
		}
	}
	return false
}

// Lookup finds an identity by canonical slug, alias slug or raw name.
func (r *Resolver) Lookup(slugOrName string) (*Identity, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, key := range []string{NormalizeSlug(slugOrName), Slugify(slugOrName)} {
		if id, ok := r.bySlug[key]; ok {
			return id, true
		}
		if canonical, ok := r.aliases[key]; ok {
			return r.bySlug[canonical], true
		}
	}
	return nil, false
}

// Identities returns all identities in registration order.
func (r *Resolver) Identities() []Identity {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]Identity, 0, len(r.order))
	for _, s := range r.order {
		out = append(out, *r.bySlug[s])
	}
	return out
}

// Aliases returns every alias decision in registration order.
func (r *Resolver) Aliases() []Alias {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []Alias
	for _, s := range r.order {
		out = append(out, r.bySlug[s].Aliases...)
	}
	return out
}

// Conflicts returns every logged name conflict.
func (r *Resolver) Conflicts() []Conflict {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.conflicts)
}

// Len returns the number of identities.
func (r *Resolver) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.order)
}

func cleanName(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func hasAliasName(aliases []Alias, name string) bool {
	return slices.ContainsFunc(aliases, func(a Alias) bool {
		return strings.EqualFold(a.Name, name)
	})
}
