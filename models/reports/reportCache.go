package reports

import (
	"context"
	"fmt"
	"time"

	"bitbucket.org/mmdatafocus/retail_ledger/config"
	"bitbucket.org/mmdatafocus/retail_ledger/utils"
)

func logSlowReport(ctx context.Context, name string, started time.Time, extra map[string]any) {
	threshold := config.ReportSlowThreshold()
	d := time.Since(started)
	if threshold <= 0 || d < threshold {
		return
	}
	cid, _ := utils.GetCorrelationIdFromContext(ctx)
	config.LogInfo(config.GetLogger(), "reports", name, "slow_report", map[string]any{
		"ms":             d.Milliseconds(),
		"correlation_id": cid,
		"extra":          extra,
	})
}

// reportCacheKey embeds the write generation so ledger writes retire old entries.
func reportCacheKey(ctx context.Context, parts ...any) string {
	key := fmt.Sprintf("report:g%d", config.ReportCacheGeneration(ctx))
	for _, p := range parts {
		key += fmt.Sprintf(":%v", p)
	}
	return key
}

func cacheGet[T any](key string, dest *T) (bool, error) {
	if !config.ReportCacheEnabled() {
		return false, nil
	}
	return config.GetRedisObject(key, dest)
}

func cacheSet(key string, obj any) {
	if !config.ReportCacheEnabled() {
		return
	}
	if err := config.SetRedisObject(key, obj, config.ReportCacheTTL()); err != nil {
		config.LogError(config.GetLogger(), "reports", "cacheSet", "store report rows", key, err)
	}
}
