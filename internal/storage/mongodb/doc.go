// Package mongodb stores session records in a MongoDB collection.
//
// Documents have the shape { _id, session, expires?, lastModified? }.
// Native expiry is a TTL index on expires with expireAfterSeconds 0; the
// server deletes expired documents about once a minute, so reads filter
// on expires as well.
package mongodb
