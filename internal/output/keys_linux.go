package output

import "time"

const keysWarmup = 2 * time.Second
