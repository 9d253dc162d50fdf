// Package types defines the Workbook, Grid and Cache ports, the codec data
// model (Path, Entry, Kind, Schema), the declaration node tree, configuration,
// and the standard errors for the sheetform system.
//
// Backends implement Workbook and Grid; the codec and form compiler depend
// only on these interfaces.
package types
