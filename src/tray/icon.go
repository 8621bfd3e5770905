package tray

import "fyne.io/fyne/v2"

// Icon is the tray image: a selection frame over an open book.
var Icon = fyne.NewStaticResource("floating-dictionary.svg", []byte(iconSVG))

const iconSVG = `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 16 16" width="16" height="16">
  <rect x="1.5" y="1.5" width="13" height="8" fill="none" stroke="#0078d4" stroke-width="1.2" stroke-dasharray="2,1"/>
  <path d="M2 11.5 Q5 10 8 11.5 Q11 10 14 11.5 V14.5 Q11 13 8 14.5 Q5 13 2 14.5 Z" fill="#ffffff" stroke="#333333" stroke-width="0.8"/>
  <line x1="8" y1="11.5" x2="8" y2="14.5" stroke="#333333" stroke-width="0.6"/>
  <text x="8" y="8" font-size="5" text-anchor="middle" fill="#333333">A&#x0E01;</text>
</svg>`
