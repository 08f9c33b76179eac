// File: settings/keys.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package settings

// Persisted setting names.
const (
	KeyShakeToShow       = "shakeToShow"
	KeyProfilingEnabled  = "profilingEnabled"
	KeyLiveReloadEnabled = "liveReloadEnabled"
	KeyHotLoadingEnabled = "hotLoadingEnabled"
	KeyShowFPS           = "showFPS"
	KeyExecutorClass     = "executorClass"
	KeyShowInspector     = "showInspector"
)

// DefaultNamespace is the store key holding the whole settings map.
const DefaultNamespace = "RCTDevMenu"
