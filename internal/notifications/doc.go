// Package notifications shows recording milestones as desktop notifications.
//
// Notifications go to org.freedesktop.Notifications on the D-Bus session bus.
// When notifications are disabled, or the session bus is unreachable, the
// package degrades to a no-op so recording never depends on a notification
// daemon being present.
package notifications
