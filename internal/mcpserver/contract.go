package mcpserver

// MacroReference describes the macros mdstrip rewrites and what each
// becomes. It is served by the get_macro_reference tool and the
// mdstrip://macro-grammar resource.
const MacroReference = `# mdstrip Macro Reference

Macros have the form ` + "`{{Name}}`" + ` or ` + "`{{Name(\"arg\", \"arg\")}}`" + `.
Arguments are double-quoted strings separated by commas; whitespace around
names, parentheses and commas is allowed. Malformed macros are left as they are.

## Rewrites (in execution order)

| Macro | Result |
|---|---|
| ` + "`<tag ...>{{Glossary(\"term\"[, \"label\"])}}</tag>`" + ` | ` + "`<tag ...><a href=\"URL\">label</a></tag>`" + ` |
| ` + "`{{Glossary(\"term\"[, \"label\"])}}`" + ` (also ` + "`glossary`" + `) | ` + "`[label](URL)`" + ` |
| ` + "`{{LearnSidebar}}`" + `, ` + "`{{GlossarySidebar}}`" + `, ` + "`{{QuickLinksWithSubpages(...)}}`" + `, ` + "`{{PreviousMenuNext(...)}}`" + ` and variants | removed with their trailing newline |
| ` + "`[text](/en-US/docs/...)`" + ` | ` + "`[text](https://developer.mozilla.org/en-US/docs/...)`" + ` |
| ` + "`![alt](images/a.png)`" + ` | ` + "`![alt](assets/images/a.png)`" + ` |
| ` + "`{{HTMLElement(\"tag\"[, \"label\"])}}`" + ` | ` + "[`<label>`](.../Web/HTML/Element/tag)" + ` |
| ` + "`{{cssxref(\"prop\"[, \"label\"])}}`" + ` | ` + "[`label`](.../Web/CSS/prop)" + ` |
| ` + "`{{HTTPStatus(\"404\"[, \"label\"])}}`" + ` | ` + "`[label](.../Web/HTTP/Status/404)`" + ` |
| ` + "`{{domxref(\"Iface.member()\"[, \"label\"])}}`" + ` | ` + "`[label](.../Web/API/Iface/member)`" + ` |

The label defaults to the first argument.

## Glossary links

A glossary term links to the local resource
` + "`resources/glossary/<term>.md`" + ` (relative to the document, one ` + "`../`" + ` per
directory level) when that file exists. Otherwise it links to the remote
glossary page, with the first letter of each word upper-cased and spaces
replaced by underscores: ` + "`web component`" + ` becomes ` + "`Glossary/Web_Component`" + `.

## Images

Relative image paths gain the ` + "`assets/`" + ` prefix. Paths already under
` + "`assets/`" + `, absolute paths, anchors and URLs with a scheme are untouched.
Upload new images with the ` + "`upload_asset`" + ` tool.

## Not rewritten

Any other macro (for example ` + "`{{EmbedLiveSample(...)}}`" + ` or ` + "`{{Compat}}`" + `) is
left in place and reported as a residual.
`
