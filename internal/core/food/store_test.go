package food

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"nutrition-engine/internal/core/nutrient"
)

// memStore 記憶體內的 Store，用於測試
type memStore struct {
	mu      sync.Mutex
	records []Record
	errs    map[string]error
	search  []Record // 不為 nil 時 Search 直接回傳
	delay   time.Duration
	calls   map[string]int
}

func newMemStore(records ...Record) *memStore {
	return &memStore{records: records, errs: map[string]error{}, calls: map[string]int{}}
}

func (s *memStore) enter(ctx context.Context, method string) error {
	s.mu.Lock()
	s.calls[method]++
	err := s.errs[method]
	s.mu.Unlock()

	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return err
}

func (s *memStore) callCount(method string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[method]
}

func (s *memStore) totalCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, c := range s.calls {
		n += c
	}
	return n
}

func (s *memStore) FindByName(ctx context.Context, name string) (*Record, error) {
	if err := s.enter(ctx, "FindByName"); err != nil {
		return nil, err
	}
	for _, r := range s.records {
		if strings.EqualFold(r.Name, name) || (r.LocalName != "" && strings.EqualFold(r.LocalName, name)) {
			rec := r
			return &rec, nil
		}
	}
	return nil, ErrNotFound
}

func (s *memStore) FindByAlias(ctx context.Context, alias string) (*Record, error) {
	if err := s.enter(ctx, "FindByAlias"); err != nil {
		return nil, err
	}
	for _, r := range s.records {
		for _, a := range r.Aliases {
			if a == alias {
				rec := r
				return &rec, nil
			}
		}
	}
	return nil, ErrNotFound
}

func (s *memStore) Search(ctx context.Context, tokens []string, limit int) ([]Record, error) {
	if err := s.enter(ctx, "Search"); err != nil {
		return nil, err
	}
	if s.search != nil {
		return s.search, nil
	}

	type scored struct {
		rec  Record
		hits int
	}
	var out []scored
	for _, r := range s.records {
		fields := r.nameFields()
		hits := 0
		for _, t := range tokens {
			if strings.Contains(fields, t) {
				hits++
			}
		}
		if hits > 0 {
			out = append(out, scored{r, hits})
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].hits != out[j].hits {
			return out[i].hits > out[j].hits
		}
		return out[i].rec.Popularity > out[j].rec.Popularity
	})

	recs := make([]Record, 0, limit)
	for i := 0; i < len(out) && i < limit; i++ {
		recs = append(recs, out[i].rec)
	}
	return recs, nil
}

func (s *memStore) FindByFragment(ctx context.Context, fragment string) (*Record, error) {
	if err := s.enter(ctx, "FindByFragment"); err != nil {
		return nil, err
	}
	var best *Record
	for i, r := range s.records {
		if !strings.Contains(strings.ToLower(r.Name), fragment) {
			continue
		}
		if best == nil || r.Popularity > best.Popularity {
			best = &s.records[i]
		}
	}
	if best == nil {
		return nil, ErrNotFound
	}
	rec := *best
	return &rec, nil
}

func regionalFixtures() []Record {
	return []Record{
		{
			ID: "r1", Name: "Char Kuey Teow", LocalName: "char kway teow", Aliases: []string{"ckt", "kuey teow goreng"},
			Tags: []string{"noodles", "fried"}, Serving: "1 plate", ServingGrams: 310, Corpus: SourceRegional,
			Nutrients: nutrient.Amounts{nutrient.Energy: 744, nutrient.Sodium: 1460, nutrient.SaturatedFat: 9.8},
			Ratings:   map[nutrient.ConditionCode]string{nutrient.Hypertension: "avoid"}, Verified: true, Popularity: 90,
		},
		{
			ID: "r2", Name: "Nasi Lemak", Aliases: []string{"nasi lemak biasa"}, Serving: "1 packet", ServingGrams: 200,
			Corpus: SourceRegional, Nutrients: nutrient.Amounts{nutrient.Energy: 389, nutrient.Sodium: 530}, Verified: true, Popularity: 100,
		},
		{
			ID: "r3", Name: "Nasi Lemak Ayam Goreng", Corpus: SourceRegional, Popularity: 70,
			Nutrients: nutrient.Amounts{nutrient.Energy: 690, nutrient.Sodium: 910, nutrient.Protein: 31},
		},
		{
			ID: "r4", Name: "Kuey Teow Soup", Corpus: SourceRegional, Popularity: 40,
			Nutrients: nutrient.Amounts{nutrient.Energy: 356, nutrient.Sodium: 1200},
		},
		{
			ID: "r5", Name: "Char Siu Rice", LocalName: "nasi char siu", Corpus: SourceRegional, Popularity: 60,
			Nutrients: nutrient.Amounts{nutrient.Energy: 605},
		},
	}
}

func generalFixtures() []Record {
	return []Record{
		{ID: "g1", Name: "Caesar Salad", Corpus: SourceGeneral, Popularity: 50, Nutrients: nutrient.Amounts{nutrient.Energy: 190}},
		{ID: "g2", Name: "Fried Rice", Aliases: []string{"egg fried rice"}, Corpus: SourceGeneral, Popularity: 80, Nutrients: nutrient.Amounts{nutrient.Energy: 333}},
		{ID: "g3", Name: "Chicken Curry", Corpus: SourceGeneral, Popularity: 60, Nutrients: nutrient.Amounts{nutrient.Energy: 410}},
	}
}
