package scorer

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/LJTian/FinRadar/internal/llm"
)

var ErrContractViolation = errors.New("scorer: contract violation")

const (
	MinScore = 1.0
	MaxScore = 10.0
)

type scoreEntry struct {
	ID    *int     `json:"id"`
	Score *float64 `json:"score"`
}

// ParseScores 严格解析模型输出：必须恰好覆盖 0..n-1 每个 id 一次，分数在 [1,10]
func ParseScores(raw string, n int) ([]float64, error) {
	content := llm.StripCodeFence(raw)

	dec := json.NewDecoder(bytes.NewReader([]byte(content)))
	dec.DisallowUnknownFields()

	var entries []scoreEntry
	if err := dec.Decode(&entries); err != nil {
		return nil, fmt.Errorf("%w: response is not a JSON array of {id, score}: %v", ErrContractViolation, err)
	}
	if dec.More() {
		return nil, fmt.Errorf("%w: trailing data after JSON array", ErrContractViolation)
	}

	scores := make([]float64, n)
	filled := make([]bool, n)
	for i, e := range entries {
		if e.ID == nil || e.Score == nil {
			return nil, fmt.Errorf("%w: entry %d is missing id or score", ErrContractViolation, i)
		}
		id := *e.ID
		if id < 0 || id >= n {
			return nil, fmt.Errorf("%w: id %d out of range [0,%d)", ErrContractViolation, id, n)
		}
		if filled[id] {
			return nil, fmt.Errorf("%w: id %d scored more than once", ErrContractViolation, id)
		}
		s := *e.Score
		if s < MinScore || s > MaxScore {
			return nil, fmt.Errorf("%w: id %d has score %v outside [%v,%v]", ErrContractViolation, id, s, MinScore, MaxScore)
		}
		scores[id] = s
		filled[id] = true
	}

	var missing []int
	for i, ok := range filled {
		if !ok {
			missing = append(missing, i)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: no score for ids %v", ErrContractViolation, missing)
	}
	return scores, nil
}
