// Package expiration provides policies that decide whether a cache entry has expired.
//
// Every policy treats the zero expiration time as "never expires", which is how entries
// written without a TTL are represented.
package expiration
