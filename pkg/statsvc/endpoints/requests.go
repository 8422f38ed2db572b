package endpoints

import "github.com/cage1016/gokitstats/pkg/statsvc/service"

type Request interface {
	validate() error
}

// MeanRequest collects the request parameters for the Mean method.
type MeanRequest struct {
	Nums []int64 `json:"nums"`
}

func (r MeanRequest) validate() error {
	return validateNums(r.Nums)
}

// MedianRequest collects the request parameters for the Median method.
type MedianRequest struct {
	Nums []int64 `json:"nums"`
}

func (r MedianRequest) validate() error {
	return validateNums(r.Nums)
}

// ModeRequest collects the request parameters for the Mode method.
type ModeRequest struct {
	Nums []int64 `json:"nums"`
}

func (r ModeRequest) validate() error {
	return validateNums(r.Nums)
}

func validateNums(nums []int64) error {
	if len(nums) == 0 {
		return service.ErrEmptyNums
	}
	return nil
}
