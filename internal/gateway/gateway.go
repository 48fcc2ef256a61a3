// Package gateway performs mutations against the remote store. Gateways never
// touch the mirrors: on success they request an explicit refresh of the
// affected collection and the reconciler brings the snapshot up to date. This
// keeps a single write path and a single read path, with no optimistic local
// edits to roll back.
//
// Updates are field-presence partial updates: only fields the caller set are
// sent, and clearing a nullable field sends an explicit SQL NULL.
package gateway

import (
	"github.com/thiagomk/eventdesk/internal/notify"
)

// RefreshFunc asks the owning engine for an explicit refresh.
type RefreshFunc func()

func notifyResult(n notify.Notifier, err error, okTitle, okDesc, failTitle string) {
	if err != nil {
		n.Notify(failTitle, err.Error(), notify.SeverityError)
		return
	}
	n.Notify(okTitle, okDesc, notify.SeverityInfo)
}
