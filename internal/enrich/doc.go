// Package enrich links normalized films to IMDb titles and snapshots their
// ratings.
//
// Films are processed sequentially with a politeness delay. An IMDb id that
// already belongs to another film is never reassigned; the attempt is counted
// as a collision. Failures of a single film are logged and counted without
// stopping the batch.
package enrich
