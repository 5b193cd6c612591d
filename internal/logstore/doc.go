// Package logstore implements bounded, persistent line stores for the audit
// trail and the temperature history.
//
// Three interchangeable strategies satisfy the Store interface:
//   - RewriteStore rewrites the whole file on every append and trims it to N
//     lines, keeping either the newest (prepended) or the last (appended) ones;
//   - WatermarkStore appends until a hard watermark and then compacts down to a
//     soft watermark through a temporary file;
//   - RotationStore spreads records over numbered files and rotates by rename.
//
// Every store serializes its own operations, so readers never see a half-done
// rotation or compaction.
package logstore
