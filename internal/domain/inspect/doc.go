/*
Package inspect opens an archive in memory and decides which of its entries
drive the preview, play and live-preview actions.

Preview selection is ordered; the first rule that matches fills the slot:

 1. index.html is the play entry (tracked separately) and the last resort
 2. <base>.gif or <base>.png
 3. <base>.txt
 4. info.txt or readme.txt
 5. any .png, .jpg, .jpeg or .gif
 6. any .txt
 7. the play entry, as html
 8. any other .html; without a play entry this is also the live-preview page

Comparison is case-insensitive. Same-directory siblings (<base>.txt,
<base>.gif|png, .capx, .c3p, _web/_win/_mac.zip, _icon.png) are found in the
tree by exact name and take precedence on the preview surface.
*/
package inspect
