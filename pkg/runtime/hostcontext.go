// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Plugboard Contributors

package runtime

import (
	"encoding/json"
	"log/slog"
	"reflect"
)

// validateHostContext inspects each top-level host context value before the
// facade exists. Oversized values and callables draw warnings; validation
// never fails and never mutates the supplied context.
//
// Size is estimated by JSON serialization, which can itself fail on cyclic
// or unserializable values; that failure degrades to a warning-and-skip
// rather than aborting initialization.
func validateHostContext(logger *slog.Logger, hc map[string]any, maxBytes int) {
	for key, value := range hc {
		if value == nil {
			continue
		}

		if reflect.TypeOf(value).Kind() == reflect.Func {
			logger.Warn("host context value is a function; it will be passed by reference and cannot be made immutable",
				"key", key)
			continue
		}

		data, err := json.Marshal(value)
		if err != nil {
			logger.Warn("host context value size could not be estimated, skipping size check",
				"key", key,
				"error", err)
			continue
		}
		if len(data) > maxBytes {
			logger.Warn("host context value exceeds size threshold",
				"key", key,
				"size_bytes", len(data),
				"threshold_bytes", maxBytes)
		}
	}
}
