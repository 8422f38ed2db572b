package transports_test

import (
	"net/url"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/cage1016/gokitstats/pkg/statsvc/service"
	"github.com/cage1016/gokitstats/pkg/statsvc/transports"
)

var _ = Describe("ParseNums()", func() {
	DescribeTable("Parses valid lists",
		func(raw string, expectation []int64) {
			nums, err := transports.ParseNums(url.Values{"nums": {raw}})
			Expect(err).NotTo(HaveOccurred())
			Expect(nums).To(Equal(expectation))
		},
		Entry("Single number", "42", []int64{42}),
		Entry("Several numbers", "1,2,3,4", []int64{1, 2, 3, 4}),
		Entry("Negative numbers", "-1,0,-30", []int64{-1, 0, -30}),
		Entry("Surrounding whitespace", " 3, 4 ", []int64{3, 4}),
		Entry("Order is kept", "9,1,5", []int64{9, 1, 5}),
	)

	DescribeTable("Rejects invalid lists",
		func(query url.Values, message string) {
			nums, err := transports.ParseNums(query)
			Expect(nums).To(BeNil())
			Expect(err).To(MatchError(service.NewValidationError(message)))
		},
		Entry("Missing parameter", url.Values{}, "Nums are required"),
		Entry("Empty parameter", url.Values{"nums": {""}}, "Nums are required"),
		Entry("Whitespace only", url.Values{"nums": {"   "}}, "Nums are required"),
		Entry("Word token", url.Values{"nums": {"1,2,abc"}}, "abc is not a number"),
		Entry("Empty token", url.Values{"nums": {"1,,2"}}, " is not a number"),
		Entry("Token quoted as sent", url.Values{"nums": {"1, x"}}, " x is not a number"),
		Entry("Decimal token", url.Values{"nums": {"1.5"}}, "1.5 is not a number"),
		Entry("Overflowing token", url.Values{"nums": {"99999999999999999999"}}, "99999999999999999999 is not a number"),
	)

	It("Round-trips through FormatNums()", func() {
		nums := []int64{-3, 0, 17}
		Expect(transports.ParseNums(transports.FormatNums(nums))).To(Equal(nums))
	})
})
