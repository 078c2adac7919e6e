// Package logsvc is the write entry point into the streaming pipeline and
// the read surface over the bounded history. Producers call Ingest or
// PublishEvent; they never touch the connection registry directly. The
// service also compiles FilterSpecs (including optional CEL expressions)
// into the predicates the hub evaluates per broadcast.
package logsvc
