// Copyright 2026 sheetrollup. All rights reserved.
// Use of this source code is governed by an MIT-style license
// that can be found in the LICENSE file.

/*
Package sheetrollup consolidates a fleet of Google Sheets into a single worksheet.

A master worksheet lists the spreadsheets to be consolidated, one row per company
with a link to that company's sheet. sheetrollup fetches the rows from each listed
sheet, discards rows that have already been consolidated in a previous run and
appends whatever is left to a target worksheet. Previously consolidated rows are
identified by a persisted set of row fingerprints so that runs are idempotent.

sheetrollup can be used from the command line but is really intended to be run from
a cron job (or with the built-in 'watch' command) to keep the consolidated worksheet
current as the source sheets accumulate rows.

sheetrollup supports the following commands:

  - run, to execute a single consolidation pass
  - watch, to run consolidation passes on a fixed interval
  - version, to display the application version
*/
package sheetrollup

const VERSION = "v0.4.2"
