// Package color provides the terminal styles shared by the CLI listings and
// the doctor report.
//
// Styles are bound to a lipgloss renderer for a specific writer, so output
// sent to a pipe or to an MCP client carries no escape sequences while the
// same report printed to a terminal is colored. NO_COLOR is honoured.
//
// # Usage Example
//
//	styles := color.NewStyles(os.Stdout)
//	fmt.Println(styles.OK.Render("✓ xcodebuild"))
//	fmt.Println(styles.Fail.Render("✗ swift"))
package color
