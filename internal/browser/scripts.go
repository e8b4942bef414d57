package browser

// Page-side scripts. Elements never cross the wire as remote objects: the
// page keeps a registry of weak references and Go refers to nodes by key.

const (
	bindingMutations = "navazMutations"
	bindingKeys      = "navazKey"
	bindingUnload    = "navazUnload"
)

// jsRegistry evaluates to the page's node registry
const jsRegistry = `(() => {
	if (!window.__navazReg) {
		const ids = new WeakMap();
		const refs = new Map();
		let next = 0;
		window.__navazReg = {
			key(el) {
				if (!ids.has(el)) {
					next++;
					ids.set(el, 'b' + next);
					refs.set('b' + next, new WeakRef(el));
				}
				return ids.get(el);
			},
			get(key) {
				const ref = refs.get(key);
				const el = ref && ref.deref();
				if (!el) refs.delete(key);
				return el || null;
			},
		};
	}
	return window.__navazReg;
})()`

// jsDescribe reads one element into the shape of dom.Info
const jsDescribe = `(el, reg) => {
	const r = el.getBoundingClientRect();
	const s = getComputedStyle(el);
	const attrs = {};
	for (const a of el.attributes) attrs[a.name] = a.value;
	return {
		key: reg.key(el),
		tag: el.tagName.toLowerCase(),
		attrs: attrs,
		text: (el.textContent || '').trim().slice(0, 500),
		disabled: !!el.disabled,
		contentEditable: !!el.isContentEditable,
		hasLayoutBox: el.isConnected && (el.offsetParent !== null || s.position === 'fixed' || el === document.body),
		rect: {left: r.left, top: r.top, width: r.width, height: r.height},
		style: {display: s.display, visibility: s.visibility, opacity: s.opacity},
	};
}`

const jsQueryAll = `(selector) => {
	const reg = ` + jsRegistry + `;
	return Array.from(document.querySelectorAll(selector), (el) => reg.key(el));
}`

// jsInspectAll describes every match in one pass. querySelectorAll is
// already in document order; the sort keeps that contract explicit.
const jsInspectAll = `(selector) => {
	const reg = ` + jsRegistry + `;
	const describe = ` + jsDescribe + `;
	const els = Array.from(document.querySelectorAll(selector));
	els.sort((a, b) => {
		if (a === b) return 0;
		const pos = a.compareDocumentPosition(b);
		if (pos & 4) return -1;
		if (pos & 2) return 1;
		return 0;
	});
	return els.map((el) => describe(el, reg));
}`

// jsInspect returns null for collected nodes
const jsInspect = `(key) => {
	const reg = ` + jsRegistry + `;
	const el = reg.get(key);
	return el ? (` + jsDescribe + `)(el, reg) : null;
}`

// DOCUMENT_POSITION_DISCONNECTED = 1, PRECEDING = 2, FOLLOWING = 4
const jsCompare = `(a, b) => {
	const reg = ` + jsRegistry + `;
	const x = reg.get(a), y = reg.get(b);
	if (!x || !y || x === y) return 0;
	const pos = x.compareDocumentPosition(y);
	if (pos & 1) return 0;
	if (pos & 4) return -1;
	if (pos & 2) return 1;
	return 0;
}`

const jsActiveElement = `() => {
	const el = document.activeElement;
	return el ? (` + jsRegistry + `).key(el) : '';
}`

// elementScript wraps body so it runs with el bound to the node behind the
// first argument and returns false when that node is gone.
func elementScript(params, body string) string {
	return `(key` + params + `) => {
	const el = (` + jsRegistry + `).get(key);
	if (!el || !el.isConnected) return false;
	` + body + `
	return true;
}`
}

var (
	jsFocus          = elementScript("", "el.focus({preventScroll: true});")
	jsSetAttribute   = elementScript(", name, value", "el.setAttribute(name, value);")
	jsAddClass       = elementScript(", name", "el.classList.add(name);")
	jsRemoveClass    = elementScript(", name", "el.classList.remove(name);")
	jsScrollIntoView = elementScript("", "el.scrollIntoView({behavior: 'smooth', block: 'center'});")
)

const jsAttach = `(owner) => {
	if (window.__navazOwner) return false;
	window.__navazOwner = owner;
	return true;
}`

const jsDetach = `(owner) => {
	if (window.__navazOwner === owner) delete window.__navazOwner;
}`

const jsInjectStyle = `(id, css) => {
	if (document.getElementById(id)) return;
	const style = document.createElement('style');
	style.id = id;
	style.textContent = css;
	(document.head || document.documentElement).appendChild(style);
}`

const jsRemoveStyle = `(id) => {
	const style = document.getElementById(id);
	if (style) style.remove();
}`

// jsObserve returns false when the page has no MutationObserver
const jsObserve = `(binding, attributes) => {
	if (typeof MutationObserver === 'undefined' || !document.body) return false;
	const send = window[binding];
	const observer = new MutationObserver((records) => {
		const batch = [];
		for (const r of records) {
			if (r.type === 'attributes') {
				batch.push({type: 'attributes', attributeName: r.attributeName});
				continue;
			}
			const nodes = [];
			for (const n of [...r.addedNodes, ...r.removedNodes]) {
				if (n.nodeType === Node.ELEMENT_NODE) nodes.push(n.outerHTML);
			}
			batch.push({type: 'childList', nodes: nodes});
		}
		send(batch);
	});
	observer.observe(document.body, {
		childList: true,
		subtree: true,
		attributes: true,
		attributeFilter: attributes,
	});
	window.__navazObserver = observer;
	return true;
}`

const jsUnobserve = `() => {
	if (window.__navazObserver) window.__navazObserver.disconnect();
	delete window.__navazObserver;
}`

// The listener suppresses the keys marked as handled in the mask and
// forwards every bound key to Go. Keys typed into form fields or editable
// regions are left alone.
const jsListenKeys = `(binding) => {
	const send = window[binding];
	const typingTags = {INPUT: true, TEXTAREA: true, SELECT: true};
	const typingRoles = {textbox: true, searchbox: true, combobox: true, spinbutton: true};
	const typing = (el) => !!el && (typingTags[el.tagName] || el.isContentEditable ||
		typingRoles[el.getAttribute('role')] === true);
	const onKey = (e) => {
		const mask = window.__navazMask || {};
		if (!Object.prototype.hasOwnProperty.call(mask, e.key)) return;
		if (typing(document.activeElement)) return;
		if (mask[e.key]) {
			e.preventDefault();
			e.stopPropagation();
		}
		send({key: e.key});
	};
	document.addEventListener('keydown', onKey, true);
	window.__navazOnKey = onKey;
}`

const jsUnlistenKeys = `() => {
	if (window.__navazOnKey) document.removeEventListener('keydown', window.__navazOnKey, true);
	delete window.__navazOnKey;
	delete window.__navazMask;
}`

const jsSetKeyMask = `(mask) => { window.__navazMask = mask; }`

const jsListenUnload = `(binding) => {
	const send = window[binding];
	const onUnload = () => send({});
	window.addEventListener('beforeunload', onUnload);
	window.__navazOnUnload = onUnload;
}`

const jsUnlistenUnload = `() => {
	if (window.__navazOnUnload) window.removeEventListener('beforeunload', window.__navazOnUnload);
	delete window.__navazOnUnload;
}`
