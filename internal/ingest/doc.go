// Package ingest turns raw MQTT telemetry into domain events.
//
// # Flow
//
// The Pipeline subscribes to the platform's telemetry topics and
// shards messages across a bounded worker pool: each device ID hashes
// to one worker, so a device's messages process in arrival order while
// different devices run in parallel. A full worker queue drops the
// message with a warning; at QoS 1 the broker redelivers, and sensors
// resample anyway.
//
// Per sensor message the stages are: decode, quality score, persist
// with duplicate suppression, device heartbeat, time-series write,
// threshold evaluation, rule engine, WebSocket broadcast. A duplicate
// delivery stops at the persistence stage so downstream consumers see
// each reading once.
//
// # Decoding and scoring
//
// The decoder is pure topic and JSON parsing; malformed input earns
// ErrMalformedTopic or ErrMalformedPayload and never reaches the
// stores. The scorer penalizes missing values, physically impossible
// values, and missing units, mapping the remaining score to a quality
// tier. Only issue-free readings are marked validated, and only
// validated readings drive alerts and automation.
package ingest
