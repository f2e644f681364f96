// Vantage - Event Tracking Client for Go
// Copyright 2026 Vantage Analytics
// SPDX-License-Identifier: MIT
// https://github.com/vantagehq/vantage-go

package identity

import (
	"fmt"
	"os"
	"runtime"
	"sync"
	"time"

	"github.com/vantagehq/vantage-go/internal/models"
)

// sdkVersion is reported in the user agent string on every batch.
const sdkVersion = "1.0.0"

var (
	deviceOnce sync.Once
	deviceInfo models.DeviceInfo
)

// CaptureDevice collects host metadata. The capture runs once per process
// and the result is immutable afterwards.
func CaptureDevice() models.DeviceInfo {
	deviceOnce.Do(func() {
		hostname, _ := os.Hostname()
		zone, _ := time.Now().Zone()

		deviceInfo = models.DeviceInfo{
			UserAgent: fmt.Sprintf("vantage-go/%s %s %s/%s",
				sdkVersion, runtime.Version(), runtime.GOOS, runtime.GOARCH),
			Hostname:  hostname,
			OS:        runtime.GOOS,
			Arch:      runtime.GOARCH,
			NumCPU:    runtime.NumCPU(),
			GoVersion: runtime.Version(),
			Language:  os.Getenv("LANG"),
			Timezone:  zone,
		}
	})
	return deviceInfo
}
