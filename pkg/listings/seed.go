package listings

import (
	"context"
	"fmt"
	"math"
	"math/rand"
)

var seedSubjects = []string{"Computer Science", "Mathematics", "Physics", "Electrical"}

// SeedIfEmpty adds ten demo listings to an empty store and returns how many it added.
func (s *Store) SeedIfEmpty(ctx context.Context, rng *rand.Rand) (int, error) {
	if s.Len() != 0 {
		return 0, nil
	}
	for i := 1; i <= 10; i++ {
		lc := ListingCreate{
			ISBN:        fmt.Sprintf("978%d", 1000000000+rng.Int63n(9000000000)),
			Price:       math.Round((100+rng.Float64()*900)*100) / 100,
			Condition:   Conditions[rng.Intn(len(Conditions))],
			Subject:     seedSubjects[rng.Intn(len(seedSubjects))],
			Semester:    1 + rng.Intn(8),
			Edition:     1 + rng.Intn(5),
			Description: fmt.Sprintf("Demo textbook %d", i),
			Images:      []string{fmt.Sprintf("https://picsum.photos/seed/%d/400/300", i)},
			Location:    "VIT Vellore",
			SellerID:    1 + rng.Int63n(5),
		}
		if _, err := s.Create(ctx, lc); err != nil {
			return i - 1, err
		}
	}
	return 10, nil
}
