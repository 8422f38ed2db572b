package endpoints

import (
	"errors"
	"net/http"

	httptransport "github.com/go-kit/kit/transport/http"
)

// Operation names reported in every StatResult.
const (
	OpMean   = "mean"
	OpMedian = "median"
	OpMode   = "mode"
)

var (
	_ httptransport.Headerer = (*MeanResponse)(nil)

	_ httptransport.StatusCoder = (*MeanResponse)(nil)

	_ httptransport.Headerer = (*MedianResponse)(nil)

	_ httptransport.StatusCoder = (*MedianResponse)(nil)

	_ httptransport.Headerer = (*ModeResponse)(nil)

	_ httptransport.StatusCoder = (*ModeResponse)(nil)
)

// Failer is implemented by responses that may carry a business error. Such
// errors are kept out of the endpoint error path so they never count
// against circuit breakers or trigger retries.
type Failer interface {
	Failed() error
}

// MeanResponse collects the response values for the Mean method.
type MeanResponse struct {
	Operation string  `json:"operation"`
	Value     float64 `json:"value"`
	Err       error   `json:"-"`
}

func (r MeanResponse) Failed() error { return r.Err }

func (r MeanResponse) StatusCode() int {
	return statusCode(r.Err)
}

func (r MeanResponse) Headers() http.Header {
	return http.Header{}
}

// MedianResponse collects the response values for the Median method.
type MedianResponse struct {
	Operation string  `json:"operation"`
	Value     float64 `json:"value"`
	Err       error   `json:"-"`
}

func (r MedianResponse) Failed() error { return r.Err }

func (r MedianResponse) StatusCode() int {
	return statusCode(r.Err)
}

func (r MedianResponse) Headers() http.Header {
	return http.Header{}
}

// ModeResponse collects the response values for the Mode method.
type ModeResponse struct {
	Operation string `json:"operation"`
	Value     int64  `json:"value"`
	Err       error  `json:"-"`
}

func (r ModeResponse) Failed() error { return r.Err }

func (r ModeResponse) StatusCode() int {
	return statusCode(r.Err)
}

func (r ModeResponse) Headers() http.Header {
	return http.Header{}
}

func statusCode(err error) int {
	if err == nil {
		return http.StatusOK
	}
	var sc httptransport.StatusCoder
	if errors.As(err, &sc) {
		return sc.StatusCode()
	}
	return http.StatusInternalServerError
}
