// Bidguard screens the companies on a construction bid and keeps score on
// them.
//
// Each bid names its manufacturers, suppliers, and subcontractors. Bidguard
// checks every one against the configured denylist or allowlist, rates the
// ones that pass, and grades the bid's overall risk. Every decision lands
// in a hash-chained audit log; ratings and trust live in an encrypted
// ledger.
//
// Usage:
//
//	# Evaluate a bid with the default configuration
//	bidguard evaluate --bid bid.yaml
//
//	# Check a single entity
//	bidguard check "Acme Steel" --category Supplier
//
//	# Verify the audit log
//	bidguard audit verify
//
//	# Show version information
//	bidguard version
package main

func main() {
	Execute()
}
