// Copyright (c) 2025, NVIDIA CORPORATION.  All rights reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package cli

import (
	"context"
	"log/slog"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"
)

// sdNotify is replaced in tests.
var sdNotify = daemon.SdNotify

// notifySystemd reports READY once ready returns true and STOPPING when ctx
// is done. Without NOTIFY_SOCKET the notifications are no-ops.
func notifySystemd(ctx context.Context, ready func() bool, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	notified := false
	for {
		select {
		case <-ctx.Done():
			if notified {
				notify(daemon.SdNotifyStopping)
			}
			return
		case <-ticker.C:
			if !notified && ready() {
				notify(daemon.SdNotifyReady)
				notified = true
			}
		}
	}
}

func notify(state string) {
	sent, err := sdNotify(false, state)
	if err != nil {
		slog.Warn("systemd notification failed", "state", state, "error", err)
		return
	}
	if sent {
		slog.Debug("systemd notified", "state", state)
	}
}
