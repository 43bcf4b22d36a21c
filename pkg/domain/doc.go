// Package domain defines the core types shared across the password
// evaluation engine: feature vectors, per-method score results, trained
// model artifacts, breach lookup records and the aggregate report.
package domain
