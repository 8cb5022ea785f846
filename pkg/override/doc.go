// Package override stores a record of every bypass and emergency
// allowance granted by the policy evaluator. The SQLite backend is
// insert-only; MemoryStore serves tests and dry runs.
package override
