package service

import (
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateBillNumber_ConcurrentCallers(t *testing.T) {
	svc := &BillingService{now: time.Now}

	const callers = 16
	const perCaller = 50

	results := make(chan string, callers*perCaller)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perCaller; j++ {
				results <- svc.generateBillNumber()
			}
		}()
	}
	wg.Wait()
	close(results)

	pattern := regexp.MustCompile(`^BILL-\d+-[0-9A-Z]{9}$`)
	seen := make(map[string]struct{}, callers*perCaller)
	for number := range results {
		require.Regexp(t, pattern, number)
		seen[number] = struct{}{}
	}
	assert.Len(t, seen, callers*perCaller, "bill numbers must stay distinct under concurrent creation")
}
