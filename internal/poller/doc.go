// Package poller implements the venue poller of the live gatherer.
//
// Every cycle gets a fresh poll id. Each venue's snapshot and funding
// endpoints are fetched concurrently under a shared limit, stamped with the
// poll time when the venue omits one, and handed to a Handler. A failing
// venue is logged and counted without affecting the others.
package poller
