package mcpserver

// QuerySyntax describes the tag-query language accepted by the search tool.
const QuerySyntax = `# Algiz Query Syntax

A query selects documents by the tags applied to them.

## Tags

- A tag is written as its taxonomy path, segments separated by ` + "`:`" + `:
  ` + "`color:red`" + `, ` + "`animal:cat`" + `.
- The first segment may match at any depth, so ` + "`red`" + ` finds ` + "`color:red`" + `.
  Later segments must be direct children of the previous one.
- ` + "`*`" + ` matches any run of characters within one segment: ` + "`animal:*`" + `, ` + "`c*`" + `.
- Every alias of a node matches, not only its canonical name.
- A document tagged with A also matches every tag that A implies,
  directly or through a chain of implications.
- A tag that matches nothing selects no documents; it is not an error.

## Operators

| Form        | Meaning                                   |
|-------------|-------------------------------------------|
| ` + "`a b`" + `       | both (AND is implied between terms)       |
| ` + "`a AND b`" + `   | both                                      |
| ` + "`a OR b`" + `    | either                                    |
| ` + "`a XOR b`" + `   | in exactly one of the operands            |
| ` + "`-a`" + `        | not a                                     |
| ` + "`( ... )`" + `   | grouping                                  |
| (empty)     | every document                            |

AND, OR and XOR share one precedence level and group left to right:
` + "`a OR b c`" + ` means ` + "`(a OR b) c`" + `. Use parentheses to say otherwise.
Keywords are uppercase.

## Examples

- ` + "`color:* -red`" + `: anything with a color except red.
- ` + "`(cat OR dog) -color:black`" + `
- ` + "`a XOR b XOR c`" + `: documents carrying exactly one of a, b, c.
`
