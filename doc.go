// Copyright 2025 ordinario. All rights reserved.
// Use of this source code is governed by an MIT-style license
// that can be found in the LICENSE file.

/*
Package contahub-app-sheets retrieves sales reports from the ContaHub point-of-sale backend and appends
them to a Google Sheets spreadsheet.

contahub-app-sheets is intended to be run either as a small HTTP service (triggered by an external scheduler
calling POST /execute) or from a cron job, and supports the following commands:

  - serve, to run the HTTP API
  - run, to publish the configured report modules once
  - debug-login, to try every ContaHub login strategy and report the outcome
  - check, to verify access to the spreadsheet and its worksheets
  - version
*/
package sheets
