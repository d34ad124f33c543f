package aicoder

import "github.com/ashwinyue/next-coder/internal/model"

const htmlRules = `你是一位资深的 Web 前端开发专家，精通 HTML、CSS 和 JavaScript。
根据用户需求生成一个完整的单页网页：
1. 只使用原生 HTML，CSS 写在 <style> 标签中，JavaScript 写在 </body> 前的 <script> 标签中
2. 不依赖任何外部框架或库，不引用外部资源
3. 页面需要响应式布局，在桌面和手机上都能正常显示
4. 图片使用 https://picsum.photos 之类的占位图
5. 代码结构清晰，必要处有注释`

const multiFileRules = `你是一位资深的 Web 前端开发专家，精通 HTML、CSS 和 JavaScript。
根据用户需求生成一个由三个文件组成的网页：index.html、style.css、script.js
1. index.html 通过 <link rel="stylesheet" href="style.css"> 引入样式，通过 <script src="script.js"></script> 引入脚本
2. 不依赖任何外部框架或库
3. 页面需要响应式布局，在桌面和手机上都能正常显示
4. 图片使用 https://picsum.photos 之类的占位图
5. 代码结构清晰，必要处有注释`

// 阻塞模式要求结构化输出
const (
	htmlJSONPrompt = htmlRules + `

只输出一个 JSON 对象，不要输出其他内容，格式为:
{"htmlCode": "完整的 HTML 代码", "description": "一句话描述"}`

	multiFileJSONPrompt = multiFileRules + `

只输出一个 JSON 对象，不要输出其他内容，格式为:
{"htmlCode": "index.html 内容", "cssCode": "style.css 内容", "jsCode": "script.js 内容", "description": "一句话描述"}`
)

// 流式模式要求 markdown 代码块
const (
	htmlStreamPrompt = htmlRules + `

先用一两句话说明设计思路，然后把完整代码放在一个 ` + "```html" + ` 代码块中输出，代码块之后不要再输出内容。`

	multiFileStreamPrompt = multiFileRules + `

先用一两句话说明设计思路，然后依次输出三个代码块：` + "```html" + `、` + "```css" + `、` + "```javascript" + `，每种代码只输出一个代码块。`
)

func jsonPrompt(genType model.CodeGenType) string {
	if genType == model.CodeGenTypeMultiFile {
		return multiFileJSONPrompt
	}
	return htmlJSONPrompt
}

func streamPrompt(genType model.CodeGenType) string {
	if genType == model.CodeGenTypeMultiFile {
		return multiFileStreamPrompt
	}
	return htmlStreamPrompt
}
