// Package redisstorage provides a coalescingloader.BulkCache backed by Redis.
//
// GetMulti is one MGET and SetMulti is one pipeline of SET commands, so a cache proxy flush
// costs two round trips at most. Values are stored as JSON together with their expiration time,
// and entries with an expiration time get the remaining duration as their Redis TTL.
// A record that cannot be decoded reads as a miss and is reported to the logger and WithDecodeErrorHandler.
package redisstorage
