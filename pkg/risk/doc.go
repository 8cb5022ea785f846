// Package risk scores how risky a bid is. Every term of the score is
// reported as a Contribution so the total can be explained.
package risk
