package training

import (
	"crypto/sha256"
	"encoding/hex"
	"math"
	"slices"
	"strconv"
	"strings"

	"github.com/sells-group/veracity-cli/internal/model"
)

// Sample is one labeled training example. Label is 1 for credible, 0
// otherwise.
type Sample struct {
	ID       string
	Features *model.FeatureVector
	Label    int
}

// Split partitions samples into train and validation sets. Each class is
// ordered by sha256(seed:id) and the first round(n*ratio) members (at least
// one, leaving at least one for training) go to validation. The result
// depends only on the ids, the seed and the ratio.
func Split(samples []Sample, ratio float64, seed int64) (train, val []Sample) {
	byClass := map[int][]Sample{}
	for _, s := range samples {
		byClass[s.Label] = append(byClass[s.Label], s)
	}

	for _, label := range []int{0, 1} {
		group := byClass[label]
		keys := make(map[string]string, len(group))
		for _, s := range group {
			keys[s.ID] = splitKey(seed, s.ID)
		}
		slices.SortStableFunc(group, func(a, b Sample) int {
			if c := strings.Compare(keys[a.ID], keys[b.ID]); c != 0 {
				return c
			}
			return strings.Compare(a.ID, b.ID)
		})

		nVal := 0
		if len(group) >= 2 {
			nVal = int(math.Round(float64(len(group)) * ratio))
			nVal = max(1, min(nVal, len(group)-1))
		}
		val = append(val, group[:nVal]...)
		train = append(train, group[nVal:]...)
	}
	return train, val
}

func splitKey(seed int64, id string) string {
	sum := sha256.Sum256([]byte(strconv.FormatInt(seed, 10) + ":" + id))
	return hex.EncodeToString(sum[:])
}
