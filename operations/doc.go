/*
Package operations records every step of a deployment scenario as a report.

# Operations API

An Operation wraps a single side effect, such as deploying a contract, sending a mint
transaction or funding an account. A Sequence groups the operations of one scenario run.
Both are identified by a Definition (ID, semver version, description).

Every execution appends a Report to the Reporter of the Bundle, successful or not. Reports carry
the input, the output, the error and a uuid, and can be written as JSON at the end of a run.

Operations are never deduplicated or retried: executing an operation twice submits two
transactions, each with a fresh nonce.

# Basic Usage

	op := operations.NewOperation("deploy-contract", semver.MustParse("1.0.0"),
		"Deploys a compiled contract", handler)

	bundle := operations.NewBundle(ctxFn, lggr, operations.NewMemoryReporter())
	report, err := operations.ExecuteOperation(bundle, op, deps, input)
*/
package operations
