package transports

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/cage1016/gokitstats/pkg/statsvc/service"
)

const numsParam = "nums"

// ParseNums extracts the comma-separated integers held by the nums query
// parameter. Tokens are trimmed before parsing; error messages quote the
// token as it was sent.
func ParseNums(query url.Values) ([]int64, error) {
	raw := query.Get(numsParam)
	if strings.TrimSpace(raw) == "" {
		return nil, service.NewValidationError("Nums are required")
	}

	tokens := strings.Split(raw, ",")
	nums := make([]int64, 0, len(tokens))
	for _, tok := range tokens {
		n, err := strconv.ParseInt(strings.TrimSpace(tok), 10, 64)
		if err != nil {
			return nil, service.NewValidationError(fmt.Sprintf("%s is not a number", tok))
		}
		nums = append(nums, n)
	}
	return nums, nil
}

// FormatNums is the inverse of ParseNums.
func FormatNums(nums []int64) url.Values {
	tokens := make([]string, len(nums))
	for i, n := range nums {
		tokens[i] = strconv.FormatInt(n, 10)
	}
	return url.Values{numsParam: {strings.Join(tokens, ",")}}
}
