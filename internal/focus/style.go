package focus

import "strings"

// StyleID is the id of the injected style element
const StyleID = "keyboard-nav-styles"

const highlightCSS = `
.CLASS {
	outline: 3px solid #ff6b35 !important;
	outline-offset: 2px !important;
	background-color: rgba(255, 107, 53, 0.15) !important;
	box-shadow: 0 0 0 1px rgba(255, 107, 53, 0.4), 0 0 8px rgba(255, 107, 53, 0.3) !important;
	position: relative !important;
	z-index: 2147483647 !important;
	border-radius: 2px !important;
	transition: none !important;
}

.CLASS::before {
	content: '';
	position: absolute !important;
	top: -5px !important;
	left: -5px !important;
	right: -5px !important;
	bottom: -5px !important;
	border: 2px solid #ff6b35 !important;
	border-radius: 4px !important;
	pointer-events: none !important;
	z-index: -1 !important;
}
`

// CSS returns the highlight stylesheet for the controller's class
func (c *Controller) CSS() string {
	return strings.ReplaceAll(highlightCSS, "CLASS", c.class)
}
