// Package cli implements the bldm-localizer command-line interface.
//
// Commands are cobra.Command values that load config and hand off to
// Localize, which drives the interactive workflow through a Prompter:
//
//	bldm-localizer [dir]          - Same as localize
//	bldm-localizer localize [dir] - Pick an export from a directory
//	bldm-localizer xml <file>     - Localize one XML export
//	bldm-localizer car <file>     - Localize one CAR archive
//	bldm-localizer probe <host>   - Check an SFTP host answers SSH
//	bldm-localizer config init    - Write a default config file
//	bldm-localizer config show    - Print the effective config
//
// # Workflow
//
// Localize runs these steps in order, stopping cleanly (errors.ErrCancelled)
// when the operator declines or quits:
//
//  1. Banner and compatibility acknowledgement
//  2. Directory prompt, discovery, and file selection
//  3. Operation selection and the values those operations need
//  4. The pipeline over the XML, inside the archive for CAR input
//  5. Summary of what changed and where the results went
//
// Global flags (--config, --verbose, --no-color, --no-log) are defined on
// the root command.
package cli
