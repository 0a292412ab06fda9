/*
Package query reads TGrep2 query files and turns them into self-contained
queries ready to be sent to the engine.

# File Format

A query file is UTF-8 text processed line by line:

  - '#' starts a comment that runs to the end of the line.
  - Blank lines (after comment removal and trimming) are ignored.
  - A line whose first character is '@' and last character is ';' is a
    macro definition, kept verbatim.
  - Every other line is a query.

Example:

	# verb particle constructions
	@VERB /^VB/;
	@PRT PRT;
	`@VERB . `@PRT    # two fields per match

# Fields

Each backtick (`) in a query marks a node the engine prints for every
match. The number of markers is the query's field count; a query without
markers prints the whole match and has a field count of 1.

# Macros

Macros are global to a Set: every query is prefixed with all macros of the
file, joined by newlines, whether or not the query uses them.
*/
package query
