// Package source provides adapters that turn common data access shapes into a coalescingloader.FetchFunc.
//
// Bulk lookups usually return a map or a list that omits missing rows, and some backends only offer
// single-key lookups. The adapters in this package convert those shapes into the ordered,
// same-length result that the loaders of this module expect.
package source
