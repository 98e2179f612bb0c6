package ui

// ColorPrimary returns the accent escape of the active theme.
func ColorPrimary() string { return GetCurrentTheme().Primary }

// ColorDim returns the secondary escape of the active theme.
func ColorDim() string { return GetCurrentTheme().Secondary }

// ColorYellow returns the warning escape of the active theme.
func ColorYellow() string { return GetCurrentTheme().Warning }

// ColorBold returns the bold escape of the active theme.
func ColorBold() string { return GetCurrentTheme().Bold }

// ColorReset returns the reset escape of the active theme.
func ColorReset() string { return GetCurrentTheme().Reset }
