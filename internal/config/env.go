package config

import (
	"fmt"
	"os"
	"strconv"
)

// FromEnv overlays environment variables onto cfg. Legacy names are applied
// first, then CARTSYNC_* names win.
func (c *Config) FromEnv() error {
	// Legacy names, kept for drop-in compatibility.
	setString(&c.AWS.Region, "AWS_REGION")
	setString(&c.CleverTap.AccountID, "CLEVERTAP_ACCOUNT_ID")
	setString(&c.CleverTap.Passcode, "CLEVERTAP_PASSCODE")
	setString(&c.Buckets.CartAbandon, "S3_CART_ABANDON_BUCKET")
	setString(&c.Buckets.ChargedEvents, "S3_CHARGED_EVENTS_BUCKET")
	setString(&c.Buckets.ProductView, "S3_PRODUCT_VIEW_BUCKET")
	setString(&c.Buckets.Delta, "S3_DELTA_EVENTS_BUCKET")

	setString(&c.AWS.Region, "CARTSYNC_AWS_REGION")
	setString(&c.CleverTap.BaseURL, "CARTSYNC_CLEVERTAP_BASE_URL")
	setString(&c.CleverTap.AccountID, "CARTSYNC_CLEVERTAP_ACCOUNT_ID")
	setString(&c.CleverTap.Passcode, "CARTSYNC_CLEVERTAP_PASSCODE")
	setString(&c.Buckets.CartAbandon, "CARTSYNC_CART_ABANDON_BUCKET")
	setString(&c.Buckets.ChargedEvents, "CARTSYNC_CHARGED_EVENTS_BUCKET")
	setString(&c.Buckets.ProductView, "CARTSYNC_PRODUCT_VIEW_BUCKET")
	setString(&c.Buckets.Delta, "CARTSYNC_DELTA_BUCKET")
	setString(&c.Pipeline.RowFilter, "CARTSYNC_ROW_FILTER")

	for _, v := range []struct {
		dst  *int
		name string
	}{
		{&c.CleverTap.TimeoutSeconds, "CARTSYNC_CLEVERTAP_TIMEOUT_SECONDS"},
		{&c.Pipeline.MaxItemsPerProfile, "CARTSYNC_MAX_ITEMS_PER_PROFILE"},
		{&c.Pipeline.MinViewCount, "CARTSYNC_MIN_VIEW_COUNT"},
		{&c.Pipeline.LookbackDays, "CARTSYNC_LOOKBACK_DAYS"},
		{&c.Dispatch.BatchSize, "CARTSYNC_BATCH_SIZE"},
		{&c.Dispatch.Concurrency, "CARTSYNC_CONCURRENCY"},
		{&c.Dispatch.MaxRetries, "CARTSYNC_MAX_RETRIES"},
		{&c.Dispatch.BaseDelayMs, "CARTSYNC_BASE_DELAY_MS"},
	} {
		if err := setInt(v.dst, v.name); err != nil {
			return err
		}
	}
	return nil
}

func setString(dst *string, name string) {
	if v, ok := os.LookupEnv(name); ok && v != "" {
		*dst = v
	}
}

func setInt(dst *int, name string) error {
	v, ok := os.LookupEnv(name)
	if !ok || v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	*dst = n
	return nil
}
