// Package models holds the validated domain values of the NYC street tree census.
//
// # Data Source
//
// Records come from the NYC Parks "2015 Street Tree Census" export: one CSV row per
// street tree, 41+ columns, first row is a header. Only nine columns are kept:
//
//	tree_id   (col 0)   non-negative integer
//	tree_dbh  (col 3)   trunk diameter at breast height, inches, non-negative
//	status    (col 6)   Alive | Dead | Stump, may be blank
//	health    (col 7)   Good | Fair | Poor, blank for dead trees and stumps
//	spc_common(col 9)   common species name, e.g. "honeylocust", "pin oak"
//	zipcode   (col 25)  five digit zip
//	boroname  (col 29)  Manhattan | Bronx | Brooklyn | Queens | Staten Island
//	x_sp/y_sp (col 39/40) State Plane coordinates, stored verbatim
//
// # Case Handling
//
// Every comparison against species, borough, status and health values folds both
// operands to upper case with [Fold]. Stored values keep the casing found in the
// dataset; only comparisons are folded.
//
// # Absence
//
// A blank status or health is the absence value ([StatusAbsent], [HealthAbsent]),
// which is a legal value and distinct from an invalid one.
package models
