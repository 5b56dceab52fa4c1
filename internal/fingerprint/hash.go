// Package fingerprint provides the deterministic content and cache-key
// hashing used by the crawler's dedup step and the LLM cache. SHA-256 is
// used wherever a collision would mean "we silently merged two different
// documents"; MD5 is used only for cache keys, where a collision costs a
// cache miss and nothing more (see spec §4.E).
package fingerprint

import (
	"crypto/md5"
	"crypto/sha256"
	"encoding/hex"
)

// ContentHash returns the hex-encoded SHA-256 digest of content, used for
// document/chunk content-addressing and crawl dedup.
func ContentHash(content string) string {
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])
}

// ContentHashBytes is the []byte variant, used by format decoders that
// already hold raw file bytes.
func ContentHashBytes(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}

// CacheKeyHash returns the 32-character hex MD5 digest used for cache
// keys (source_hash, prompt_hash). No security property depends on this;
// it is chosen purely because it is cheap and a collision only costs a
// cache miss.
func CacheKeyHash(content string) string {
	sum := md5.Sum([]byte(content))
	return hex.EncodeToString(sum[:])
}

// PromptHash fingerprints a rendered prompt template so that changing the
// template produces a new cache key.
func PromptHash(renderedTemplate string) string {
	return CacheKeyHash(renderedTemplate)
}
