// Package merge сводит два конфликтующих тела документа к одному.
//
// Merger - чистая детерминированная функция без I/O. Уровни слияния
// оформлены упорядоченной таблицей решений: первый сработавший уровень
// определяет результат. Последний уровень (composite) срабатывает всегда
// и никогда не теряет содержимое.
package merge

import (
	"errors"
	"fmt"
	"sort"
	"time"
	"unicode/utf8"

	"github.com/iudanet/docsync/internal/models"
)

// ErrMergeFailure indicates that a body cannot be merged (e.g. corrupted input).
var ErrMergeFailure = errors.New("merge failure")

// Tier identifies which rule of the decision table produced a result.
type Tier int

const (
	TierIdentity Tier = iota + 1
	TierEmptiness
	TierContainment
	TierHeavyContainment
	TierPrefixExtension
	TierCommonPrefix
	TierComposite
)

// String возвращает имя уровня для логов
func (t Tier) String() string {
	switch t {
	case TierIdentity:
		return "identity"
	case TierEmptiness:
		return "emptiness"
	case TierContainment:
		return "containment"
	case TierHeavyContainment:
		return "heavy_containment"
	case TierPrefixExtension:
		return "prefix_extension"
	case TierCommonPrefix:
		return "common_prefix"
	case TierComposite:
		return "composite"
	default:
		return "unknown"
	}
}

// Side одна из конфликтующих версий
type Side struct {
	UpdatedAt time.Time
	Body      string
	Revision  models.Revision
}

// Result результат слияния
type Result struct {
	Body string
	Tier Tier
}

// Composite reports whether the result is a conflict-marked composite body.
func (r Result) Composite() bool {
	return r.Tier == TierComposite
}

// Options пороги эвристик. Значения по умолчанию - DefaultOptions.
type Options struct {
	// HeavyMaxShortLines короткая сторона должна иметь меньше строк
	HeavyMaxShortLines int `json:"heavy_max_short_lines" yaml:"heavy_max_short_lines"`
	// HeavyLengthRatio длинная сторона должна быть длиннее во столько раз
	HeavyLengthRatio float64 `json:"heavy_length_ratio" yaml:"heavy_length_ratio"`
	// HeavyCoverage доля непустых строк короткой стороны, найденных в длинной
	HeavyCoverage float64 `json:"heavy_coverage" yaml:"heavy_coverage"`
	// PrefixCoverage доля общего префикса от более короткой последовательности строк
	PrefixCoverage float64 `json:"prefix_coverage" yaml:"prefix_coverage"`
}

// DefaultOptions returns the stock heuristic thresholds.
func DefaultOptions() Options {
	return Options{
		HeavyMaxShortLines: 5,
		HeavyLengthRatio:   2,
		HeavyCoverage:      0.8,
		PrefixCoverage:     0.5,
	}
}

// rule - строка таблицы решений
type rule struct {
	apply func(o Options, a, b *input) (string, bool)
	tier  Tier
}

var decisionTable = []rule{
	{tier: TierIdentity, apply: identity},
	{tier: TierEmptiness, apply: emptiness},
	{tier: TierContainment, apply: containment},
	{tier: TierHeavyContainment, apply: heavyContainment},
	{tier: TierPrefixExtension, apply: prefixExtension},
	{tier: TierCommonPrefix, apply: commonPrefix},
	{tier: TierComposite, apply: composite},
}

// Merger применяет таблицу решений с заданными порогами
type Merger struct {
	opts Options
}

// New creates a Merger. Zero-valued thresholds fall back to defaults.
func New(opts Options) *Merger {
	def := DefaultOptions()
	if opts.HeavyMaxShortLines <= 0 {
		opts.HeavyMaxShortLines = def.HeavyMaxShortLines
	}
	if opts.HeavyLengthRatio <= 0 {
		opts.HeavyLengthRatio = def.HeavyLengthRatio
	}
	if opts.HeavyCoverage <= 0 {
		opts.HeavyCoverage = def.HeavyCoverage
	}
	if opts.PrefixCoverage <= 0 {
		opts.PrefixCoverage = def.PrefixCoverage
	}
	return &Merger{opts: opts}
}

// Options returns the effective thresholds.
func (m *Merger) Options() Options {
	return m.opts
}

// Merge сводит две версии к одной
func (m *Merger) Merge(a, b Side) (Result, error) {
	if !utf8.ValidString(a.Body) {
		return Result{}, fmt.Errorf("%w: revision %s body is not valid UTF-8", ErrMergeFailure, a.Revision)
	}
	if !utf8.ValidString(b.Body) {
		return Result{}, fmt.Errorf("%w: revision %s body is not valid UTF-8", ErrMergeFailure, b.Revision)
	}

	ia, ib := newInput(a), newInput(b)
	for _, r := range decisionTable {
		if body, ok := r.apply(m.opts, ia, ib); ok {
			return Result{Body: body, Tier: r.tier}, nil
		}
	}
	// composite срабатывает всегда, сюда не доходим
	return Result{}, fmt.Errorf("%w: no rule matched", ErrMergeFailure)
}

// MergeAll сводит больше двух листьев попарно, слева направо по возрастанию ревизии.
// Промежуточные composite-результаты снова проходят через Merge.
func (m *Merger) MergeAll(sides []Side) (Result, error) {
	if len(sides) == 0 {
		return Result{}, fmt.Errorf("%w: no candidates", ErrMergeFailure)
	}

	ordered := make([]Side, len(sides))
	copy(ordered, sides)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Revision.Less(ordered[j].Revision)
	})

	acc := ordered[0]
	if !utf8.ValidString(acc.Body) {
		return Result{}, fmt.Errorf("%w: revision %s body is not valid UTF-8", ErrMergeFailure, acc.Revision)
	}
	result := Result{Body: acc.Body, Tier: TierIdentity}

	for _, next := range ordered[1:] {
		res, err := m.Merge(acc, next)
		if err != nil {
			return Result{}, err
		}
		if res.Tier > result.Tier {
			result.Tier = res.Tier
		}
		result.Body = res.Body

		acc = Side{Body: res.Body, UpdatedAt: acc.UpdatedAt, Revision: next.Revision}
		if next.UpdatedAt.After(acc.UpdatedAt) {
			acc.UpdatedAt = next.UpdatedAt
		}
	}

	return result, nil
}
