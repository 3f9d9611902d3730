// Package version parses and orders cookbook version identifiers.
//
// A Version is a dotted sequence of non-negative integers of any length
// ("1", "1.2", "1.2.3", "2.0.0.4"). Versions compare segment by segment
// from the left, with missing trailing segments treated as zero, so
// "1.2" and "1.2.0" are equal and "1.9" is older than "1.10".
//
// # Parsing
//
//	v, err := version.Parse("1.10.2")
//	if err != nil {
//	    var perr *version.ParseError
//	    errors.As(err, &perr) // perr.Input, perr.Segment
//	}
//
// Environment pins carry a constraint operator in front of the version
// text ("= 1.4.0"). ParsePin strips the equality operator before parsing
// and rejects every other operator, because only an exact pin identifies
// a single promoted version.
//
// # Ordering
//
// Compare returns a three-way Ordering and never fails; all validation
// happens in Parse. SortDescending orders a slice newest first and keeps
// equal versions in their input order.
package version
