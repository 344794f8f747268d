// Package health runs provider-supplied health probes with a hard timeout
// and caches results per provider with a bounded TTL. Caching bounds the
// rate of outbound health calls; per-entry locking keeps one provider's
// slow probe from blocking checks on any other.
package health
