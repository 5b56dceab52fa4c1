package llmcache

import "time"

// nowFunc is overridden in tests to make generated-at timestamps
// deterministic.
var nowFunc = time.Now
